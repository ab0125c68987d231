package pdo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []RxFrame{
		{Controlword: 0x000F, TargetPosition: 0},
		{Controlword: 0x0006, TargetPosition: -139_810_336},
		{Controlword: 0x0080, TargetPosition: 2_147_483_647},
		{Controlword: 0xFFFF, TargetPosition: -2_147_483_648},
	}
	for _, rx := range cases {
		encoded := Encode(rx)
		require.Len(t, encoded, FrameLength)
		tx := Decode(encoded)
		assert.Equal(t, rx.Controlword, tx.Statusword, "controlword/statusword share byte offset 0")
		assert.Equal(t, rx.TargetPosition, tx.ActualPosition, "target/actual position share byte offsets 2-5")
	}
}

func TestEncodeByteOrder(t *testing.T) {
	encoded := Encode(RxFrame{Controlword: 0x0102, TargetPosition: 0x04030201})
	assert.Equal(t, byte(0x02), encoded[0])
	assert.Equal(t, byte(0x01), encoded[1])
	assert.Equal(t, byte(0x01), encoded[2])
	assert.Equal(t, byte(0x02), encoded[3])
	assert.Equal(t, byte(0x03), encoded[4])
	assert.Equal(t, byte(0x04), encoded[5])
}

func TestDecodeSignedPosition(t *testing.T) {
	buf := Encode(RxFrame{Controlword: 0, TargetPosition: -50})
	tx := Decode(buf)
	assert.Equal(t, int32(-50), tx.ActualPosition)
}

func TestDecodeBytesAndEncodeBytes(t *testing.T) {
	rx := RxFrame{Controlword: 0x0007, TargetPosition: 12_345_678}
	raw := EncodeBytes(rx)
	require.Len(t, raw, FrameLength)
	tx := DecodeBytes(raw)
	assert.Equal(t, rx.Controlword, tx.Statusword)
	assert.Equal(t, rx.TargetPosition, tx.ActualPosition)
}
