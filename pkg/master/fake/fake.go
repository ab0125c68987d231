// Package fake provides an in-memory master.Master implementation used by
// this module's own tests, playing the role the teacher's pkg/can/virtual
// bus plays for CANopen: a deterministic stand-in for real hardware so the
// Control Loop, Lifecycle Manager and Fault Supervisor are fully testable
// without an EtherCAT adapter.
//
// The simulated drive follows the same CiA 402 power state machine the
// core drives it through, and reports the target position written on the
// previous cycle as its actual position one cycle later, in effect
// modeling an ideal (zero following-error) drive. Tests that need to
// exercise fault handling call InjectFault directly; a Fault Reset
// controlword clears the injected fault.
package fake

import (
	"fmt"
	"sync"

	"cspmotion/pkg/master"
)

// Master is a fake EtherCAT master over an in-memory set of slaves.
type Master struct {
	mu        sync.Mutex
	opened    bool
	adapter   string
	state     master.State
	slaves    []*Slave
	dcEnabled bool
	dcPeriod  int64
}

// New returns a fake Master pre-populated with n slaves, all starting in
// the Switch On Disabled power state with actual position 0.
func New(n int) *Master {
	m := &Master{state: master.StateInit}
	for i := 0; i < n; i++ {
		m.slaves = append(m.slaves, newSlave(fmt.Sprintf("fake-slave-%d", i)))
	}
	return m
}

func (m *Master) Open(adapter string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = true
	m.adapter = adapter
	return nil
}

func (m *Master) ConfigInit() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.opened {
		return 0, fmt.Errorf("fake master: not open")
	}
	return len(m.slaves), nil
}

func (m *Master) SlaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slaves)
}

func (m *Master) Slave(i int) (master.Slave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.slaves) {
		return nil, master.ErrSlaveOutOfRange
	}
	return m.slaves[i], nil
}

func (m *Master) StateWrite(state master.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	for _, s := range m.slaves {
		s.busState = state
	}
	return nil
}

func (m *Master) StateRead() (master.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

// SendProcessData applies every slave's currently written RxPDO to its
// simulated power state machine and motion model. Real EtherCAT would
// transmit here and the slave would react asynchronously; the fake
// applies the reaction immediately so callers see it on the very next
// ReceiveProcessData.
func (m *Master) SendProcessData() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slaves {
		s.step()
	}
	return nil
}

// ReceiveProcessData is a no-op for the fake: slave state was already
// advanced in SendProcessData, and Slave.Input always reflects current
// state.
func (m *Master) ReceiveProcessData() error {
	return nil
}

func (m *Master) DCSync(enable bool, periodNs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dcEnabled = enable
	m.dcPeriod = periodNs
	return nil
}

func (m *Master) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = false
	return nil
}
