// Package cia402 drives the CiA 402 power state machine for a single
// EtherCAT slave. Given the slave's statusword it selects the controlword
// for the next cycle; it holds no state beyond the last controlword it
// emitted, mirroring the way the source's per-slave NMT-style state
// selection worked from statusword alone.
package cia402

// Controlword values understood by a CiA 402 CSP drive.
const (
	CtrlShutdown        uint16 = 0x0006
	CtrlSwitchOn        uint16 = 0x0007
	CtrlEnableOperation uint16 = 0x000F
	CtrlDisableVoltage  uint16 = 0x0000
	CtrlFaultReset      uint16 = 0x0080
)

// Statusword masks and values for the states this driver distinguishes.
const (
	maskSwitchOnDisabled = 0x004F
	valSwitchOnDisabled  = 0x0040

	maskGeneral         = 0x006F
	valReadyToSwitchOn  = 0x0021
	valSwitchedOn       = 0x0023
	valOperationEnabled = 0x0027

	bitFault = 0x0008
)

// Driver selects the next controlword for one slave from its statusword.
// It is not safe for concurrent use; the Control Loop owns one Driver per
// axis and calls Next from a single goroutine.
type Driver struct {
	lastControlword uint16
}

// New returns a Driver with no history; its first Next call has no
// dependency on prior cycles.
func New() *Driver {
	return &Driver{}
}

// Next returns the controlword to send this cycle given the slave's
// statusword, and reports whether the drive is in Operation Enabled (the
// only state in which trajectory targets should be updated).
func (d *Driver) Next(statusword uint16) (controlword uint16, operationEnabled bool) {
	switch {
	case statusword&maskSwitchOnDisabled == valSwitchOnDisabled:
		controlword = CtrlShutdown
	case statusword&maskGeneral == valReadyToSwitchOn:
		controlword = CtrlSwitchOn
	case statusword&maskGeneral == valSwitchedOn:
		controlword = CtrlEnableOperation
	case statusword&maskGeneral == valOperationEnabled:
		controlword = CtrlEnableOperation
		operationEnabled = true
	case statusword&bitFault != 0:
		controlword = CtrlFaultReset
	default:
		controlword = CtrlShutdown
	}
	d.lastControlword = controlword
	return controlword, operationEnabled
}

// LastControlword returns the controlword emitted on the previous Next
// call, or 0 if Next has not been called yet.
func (d *Driver) LastControlword() uint16 {
	return d.lastControlword
}
