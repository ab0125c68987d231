package fake

import (
	"sync"

	"cspmotion/pkg/master"
	"cspmotion/pkg/pdo"
)

// drive power states the fake slave cycles through; distinct from
// cia402.Driver's controlword selection, this is the slave side of the
// same state machine.
type drivePowerState uint8

const (
	powerSwitchOnDisabled drivePowerState = iota
	powerReadyToSwitchOn
	powerSwitchedOn
	powerOperationEnabled
	powerFault
)

// statuswords returned for each simulated power state, chosen to satisfy
// the exact masks pkg/cia402 checks.
var statuswordFor = map[drivePowerState]uint16{
	powerSwitchOnDisabled: 0x0040,
	powerReadyToSwitchOn:  0x0021,
	powerSwitchedOn:       0x0023,
	powerOperationEnabled: 0x0027,
	powerFault:            0x0008,
}

// Slave is the fake implementation of master.Slave.
type Slave struct {
	mu       sync.Mutex
	name     string
	busState master.State
	power    drivePowerState
	faulted  bool

	output [pdo.FrameLength]byte // RxPDO written by the controller
	actual int32                 // simulated actual position

	sdo map[sdoKey][]byte
}

type sdoKey struct {
	index    uint16
	subindex uint8
}

func newSlave(name string) *Slave {
	return &Slave{
		name:  name,
		power: powerSwitchOnDisabled,
		sdo:   make(map[sdoKey][]byte),
	}
}

func (s *Slave) Name() string { return s.name }

func (s *Slave) Output() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output[:]
}

func (s *Slave) Input() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := pdo.EncodeTx(pdo.TxFrame{
		Statusword:     s.statusword(),
		ActualPosition: s.actual,
	})
	return buf[:]
}

func (s *Slave) statusword() uint16 {
	if s.faulted {
		return statuswordFor[powerFault]
	}
	return statuswordFor[s.power]
}

func (s *Slave) SDORead(index uint16, subindex uint8, buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.sdo[sdoKey{index, subindex}]
	if !ok {
		return 0, nil
	}
	n := copy(buf, data)
	return n, nil
}

func (s *Slave) SDOWrite(index uint16, subindex uint8, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.sdo[sdoKey{index, subindex}] = cp
	return nil
}

// step advances the power state machine from the controlword currently
// in Output, and moves actual to the commanded target position (the fake
// drive has no following error).
func (s *Slave) step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	rx := pdo.DecodeRx(s.output)
	cw := rx.Controlword

	if s.faulted {
		if cw&0x0080 != 0 { // Fault Reset
			s.faulted = false
			s.power = powerSwitchOnDisabled
		}
	} else {
		switch {
		case cw == 0x0006 && s.power == powerSwitchOnDisabled:
			s.power = powerReadyToSwitchOn
		case cw == 0x0007 && s.power == powerReadyToSwitchOn:
			s.power = powerSwitchedOn
		case cw == 0x000F && (s.power == powerSwitchedOn || s.power == powerOperationEnabled):
			s.power = powerOperationEnabled
		case cw == 0x0006 && s.power != powerSwitchOnDisabled:
			s.power = powerReadyToSwitchOn
		case cw == 0x0000:
			s.power = powerSwitchOnDisabled
		}
	}

	if s.power == powerOperationEnabled && !s.faulted {
		s.actual = rx.TargetPosition
	}
}

// InjectFault forces the simulated drive into the Fault power state,
// independent of the controlword last received, for exercising spec.md
// scenario S4.
func (s *Slave) InjectFault() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faulted = true
}

// SetActualPosition seeds the simulated actual position, e.g. to emulate
// a drive that powered on somewhere other than 0 before OP entry.
func (s *Slave) SetActualPosition(pulses int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actual = pulses
}

// ActualPosition returns the simulated actual position, for test
// assertions.
func (s *Slave) ActualPosition() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actual
}
