// Package master declares the interface this module expects from the
// EtherCAT master collaborator. Adapter enumeration, slave discovery, the
// actual PDO/SDO wire protocol and Distributed Clock synchronization are
// out of scope for this module (spec section 1); this package only
// describes the surface the Control Loop and Lifecycle Manager call
// through, so the core can be built and tested against a fake
// implementation (see pkg/master/fake) instead of real hardware.
package master

import "errors"

// State is an EtherCAT bus state, in the order a slave transitions through
// on the way to Operational.
type State uint8

const (
	StateInit State = iota
	StatePreOp
	StateSafeOp
	StateOp
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StatePreOp:
		return "PREOP"
	case StateSafeOp:
		return "SAFEOP"
	case StateOp:
		return "OP"
	default:
		return "UNKNOWN"
	}
}

// ErrSlaveOutOfRange is returned by Master.Slave for an index outside
// [0, SlaveCount).
var ErrSlaveOutOfRange = errors.New("master: slave index out of range")

// Master is the subset of EtherCAT master functionality this module
// depends on. A real implementation wraps a SOEM-style master; pkg/master/
// fake provides an in-memory stand-in for tests.
type Master interface {
	// Open connects to the named network adapter. It must be called
	// before ConfigInit.
	Open(adapter string) error

	// ConfigInit enumerates slaves on the bus and returns how many were
	// found.
	ConfigInit() (found int, err error)

	// SlaveCount returns the number of slaves discovered by ConfigInit.
	SlaveCount() int

	// Slave returns the handle for the i-th discovered slave.
	Slave(i int) (Slave, error)

	// StateWrite requests a bus state transition for every slave.
	StateWrite(state State) error

	// StateRead returns the bus's current state.
	StateRead() (State, error)

	// SendProcessData transmits every slave's current output buffer.
	SendProcessData() error

	// ReceiveProcessData refreshes every slave's input buffer.
	ReceiveProcessData() error

	// DCSync enables or disables Distributed Clock synchronization at the
	// given period in nanoseconds.
	DCSync(enable bool, periodNs int64) error

	// Close releases the adapter.
	Close() error
}

// Slave is one EtherCAT slave's process-data buffers and SDO access.
type Slave interface {
	// Name identifies the slave for logging.
	Name() string

	// Output is the slave's RxPDO buffer (master writes, slave reads).
	// Mutating the returned slice takes effect on the next
	// Master.SendProcessData call.
	Output() []byte

	// Input is the slave's TxPDO buffer (slave writes, master reads). It
	// is refreshed by Master.ReceiveProcessData.
	Input() []byte

	// SDORead performs a blocking SDO upload of (index, subindex) into
	// buf, returning the number of bytes read.
	SDORead(index uint16, subindex uint8, buf []byte) (int, error)

	// SDOWrite performs a blocking SDO download of data to (index,
	// subindex).
	SDOWrite(index uint16, subindex uint8, data []byte) error
}
