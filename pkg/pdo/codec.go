// Package pdo implements the fixed CSP process-data layout shared by every
// slave in this controller: a 6-byte RxPDO (controlword, target position)
// and a 6-byte TxPDO (statusword, actual position), both little-endian.
//
// Unlike a general CANopen PDO, the mapping here is not configurable at
// runtime: every slave uses the same two objects in the same order, so
// encode/decode are plain struct packing instead of a mapping engine.
package pdo

import "encoding/binary"

// FrameLength is the size in bytes of both the RxPDO and the TxPDO.
const FrameLength = 6

// RxFrame is the master->slave process data: controlword and target
// position, in CSP (cyclic synchronous position) mode.
type RxFrame struct {
	Controlword    uint16
	TargetPosition int32
}

// TxFrame is the slave->master process data: statusword and actual
// position.
type TxFrame struct {
	Statusword     uint16
	ActualPosition int32
}

// Encode packs an RxFrame into the 6-byte wire layout:
// [cw_lo, cw_hi, tgt_b0, tgt_b1, tgt_b2, tgt_b3].
func Encode(rx RxFrame) [FrameLength]byte {
	var out [FrameLength]byte
	binary.LittleEndian.PutUint16(out[0:2], rx.Controlword)
	binary.LittleEndian.PutUint32(out[2:6], uint32(rx.TargetPosition))
	return out
}

// Decode unpacks the 6-byte TxPDO layout:
// [sw_lo, sw_hi, pos_b0, pos_b1, pos_b2, pos_b3].
func Decode(buf [FrameLength]byte) TxFrame {
	return TxFrame{
		Statusword:     binary.LittleEndian.Uint16(buf[0:2]),
		ActualPosition: int32(binary.LittleEndian.Uint32(buf[2:6])),
	}
}

// DecodeRx unpacks the 6-byte RxPDO layout (the same layout Encode
// produces) back into an RxFrame, for callers that need to read back the
// controlword/target they wrote (see pkg/master/fake).
func DecodeRx(buf [FrameLength]byte) RxFrame {
	return RxFrame{
		Controlword:    binary.LittleEndian.Uint16(buf[0:2]),
		TargetPosition: int32(binary.LittleEndian.Uint32(buf[2:6])),
	}
}

// DecodeBytes is a convenience wrapper for callers holding a slice (e.g. a
// slave's raw input buffer) rather than a fixed array. It panics if buf is
// shorter than FrameLength, matching the master collaborator's contract
// that TxPDO buffers are always exactly FrameLength bytes.
func DecodeBytes(buf []byte) TxFrame {
	var arr [FrameLength]byte
	copy(arr[:], buf[:FrameLength])
	return Decode(arr)
}

// EncodeBytes is the slice-returning counterpart of Encode, for writing
// directly into a slave's output buffer.
func EncodeBytes(rx RxFrame) []byte {
	arr := Encode(rx)
	return arr[:]
}

// EncodeTx packs a TxFrame into the same 6-byte little-endian layout as
// Encode. It exists for callers simulating the slave side of the link
// (see pkg/master/fake), which produce TxFrames rather than RxFrames.
func EncodeTx(tx TxFrame) [FrameLength]byte {
	var out [FrameLength]byte
	binary.LittleEndian.PutUint16(out[0:2], tx.Statusword)
	binary.LittleEndian.PutUint32(out[2:6], uint32(tx.ActualPosition))
	return out
}
