package cia402

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextControlwordByState(t *testing.T) {
	cases := []struct {
		name        string
		statusword  uint16
		wantCtrl    uint16
		wantEnabled bool
	}{
		{"switch on disabled", 0x0040, CtrlShutdown, false},
		{"ready to switch on", 0x0021, CtrlSwitchOn, false},
		{"switched on", 0x0023, CtrlEnableOperation, false},
		{"operation enabled", 0x0027, CtrlEnableOperation, true},
		{"fault", 0x0008, CtrlFaultReset, false},
		{"fault while ready bits also set", 0x0028, CtrlFaultReset, false},
		{"unknown/quick-stop-active", 0x0017, CtrlShutdown, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := New()
			ctrl, enabled := d.Next(tc.statusword)
			assert.Equal(t, tc.wantCtrl, ctrl)
			assert.Equal(t, tc.wantEnabled, enabled)
			assert.Equal(t, tc.wantCtrl, d.LastControlword())
		})
	}
}

func TestFaultResetEveryCycleUntilCleared(t *testing.T) {
	d := New()
	for i := 0; i < 5; i++ {
		ctrl, enabled := d.Next(0x0008)
		assert.Equal(t, CtrlFaultReset, ctrl)
		assert.False(t, enabled)
	}
	ctrl, enabled := d.Next(0x0027)
	assert.Equal(t, CtrlEnableOperation, ctrl)
	assert.True(t, enabled)
}

func TestHoldInvariantControlword(t *testing.T) {
	// Whenever the drive reports Operation Enabled the emitted controlword
	// is always Enable Operation (0x000F), independent of history.
	d := New()
	for i := 0; i < 3; i++ {
		ctrl, enabled := d.Next(0x0027)
		assert.Equal(t, CtrlEnableOperation, ctrl)
		assert.True(t, enabled)
	}
}
