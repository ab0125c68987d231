// Package lifecycle drives the EtherCAT bus from INIT through OP, with
// retrying and the SDO configuration sequence CSP mode requires, and runs
// the ordered shutdown sequence back down to INIT on exit.
package lifecycle

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"cspmotion/pkg/axis"
	"cspmotion/pkg/master"
	"cspmotion/pkg/pdo"

	log "github.com/sirupsen/logrus"
)

const (
	objControlword          = 0x6040
	objStatusword           = 0x6041
	objModesOfOperation     = 0x6060
	objFollowingErrorWindow = 0x6065
	objProfileVelocity      = 0x6081
	objProfileAcceleration  = 0x6083
	objProfileDeceleration  = 0x6084
	objRxPDOMapping1600     = 0x1600
	objTxPDOMapping1A00     = 0x1A00
	objRxPDOAssign1C12      = 0x1C12
	objTxPDOAssign1C13      = 0x1C13

	cspModeOfOperation = 8

	// followingErrorWindowPulses absorbs large transient target-actual
	// gaps at OP entry; spec.md names this exact value.
	followingErrorWindowPulses = 200_000_000

	ctrlFaultReset     = 0x0080
	ctrlDisableOp      = 0x0007 // same bit pattern as Switch On (0x0007); meaning is context-dependent per CiA 402.
	ctrlShutdown       = 0x0006
	ctrlDisableVoltage = 0x0000

	initMaxAttempts = 3
	initBackoff     = time.Second

	shutdownHoldCycles = 5
	shutdownHoldPeriod = 20 * time.Millisecond
)

// Clock abstracts wall-clock access the same way pkg/loop.Clock does, so
// the init backoff and shutdown hold delays can be driven instantly in
// tests.
type Clock struct {
	Now   func() time.Time
	Sleep func(time.Duration)
}

// RealClock uses the actual wall clock.
func RealClock() Clock {
	return Clock{Now: time.Now, Sleep: time.Sleep}
}

// Manager is the Lifecycle Manager.
type Manager struct {
	bus    master.Master
	clock  Clock
	period time.Duration
}

// New returns a Manager for bus, ticking at period once in OP.
func New(bus master.Master, period time.Duration, clock Clock) *Manager {
	return &Manager{bus: bus, clock: clock, period: period}
}

// Init opens adapter, expects exactly expectedSlaves to be found, SDO
// configures every slave for CSP mode, and transitions PREOP -> SAFEOP ->
// OP with Distributed Clock sync enabled. It retries the whole sequence
// up to 3 times with a 1 s backoff, per spec.md's Init budget.
func (m *Manager) Init(ctx context.Context, adapter string, expectedSlaves int, axes map[axis.ID]axis.Config) error {
	var lastErr error
	for attempt := 1; attempt <= initMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = m.initOnce(adapter, expectedSlaves, axes)
		if lastErr == nil {
			return nil
		}
		log.Warnf("[LIFECYCLE] init attempt %d/%d failed: %v", attempt, initMaxAttempts, lastErr)
		if attempt < initMaxAttempts {
			m.clock.Sleep(initBackoff)
		}
	}
	return fmt.Errorf("lifecycle: init failed after %d attempts: %w", initMaxAttempts, lastErr)
}

func (m *Manager) initOnce(adapter string, expectedSlaves int, axes map[axis.ID]axis.Config) error {
	if err := m.bus.Open(adapter); err != nil {
		return fmt.Errorf("open %s: %w", adapter, err)
	}
	found, err := m.bus.ConfigInit()
	if err != nil {
		return fmt.Errorf("config init: %w", err)
	}
	if found != expectedSlaves {
		return fmt.Errorf("found %d slaves, expected %d", found, expectedSlaves)
	}

	for i := 0; i < expectedSlaves; i++ {
		slave, err := m.bus.Slave(i)
		if err != nil {
			return fmt.Errorf("slave %d: %w", i, err)
		}
		cfg := axes[axis.ID(i)]
		if err := configureCSP(slave, cfg); err != nil {
			return fmt.Errorf("slave %d csp config: %w", i, err)
		}
	}

	if err := m.bus.StateWrite(master.StatePreOp); err != nil {
		return fmt.Errorf("preop: %w", err)
	}
	if err := m.bus.StateWrite(master.StateSafeOp); err != nil {
		return fmt.Errorf("safeop: %w", err)
	}
	if err := m.bus.DCSync(true, m.period.Nanoseconds()); err != nil {
		return fmt.Errorf("dc sync: %w", err)
	}
	if err := m.bus.StateWrite(master.StateOp); err != nil {
		return fmt.Errorf("op: %w", err)
	}

	log.Infof("[LIFECYCLE] bus in OP with %d slave(s), cycle %s", expectedSlaves, m.period)
	return nil
}

func configureCSP(slave master.Slave, cfg axis.Config) error {
	var u16 [2]byte
	var u32 [4]byte

	binary.LittleEndian.PutUint16(u16[:], ctrlFaultReset)
	if err := slave.SDOWrite(objControlword, 0, u16[:]); err != nil {
		return fmt.Errorf("fault reset: %w", err)
	}

	if err := slave.SDOWrite(objModesOfOperation, 0, []byte{cspModeOfOperation}); err != nil {
		return fmt.Errorf("mode of operation: %w", err)
	}

	// RxPDO mapping 0x1600: Controlword (u16), Target Position (i32).
	if err := slave.SDOWrite(objRxPDOMapping1600, 0, []byte{0}); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(u32[:], 0x60400010)
	if err := slave.SDOWrite(objRxPDOMapping1600, 1, u32[:]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(u32[:], 0x607A0020)
	if err := slave.SDOWrite(objRxPDOMapping1600, 2, u32[:]); err != nil {
		return err
	}
	if err := slave.SDOWrite(objRxPDOMapping1600, 0, []byte{2}); err != nil {
		return err
	}

	// TxPDO mapping 0x1A00: Statusword (u16), Position Actual (i32).
	if err := slave.SDOWrite(objTxPDOMapping1A00, 0, []byte{0}); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(u32[:], 0x60410010)
	if err := slave.SDOWrite(objTxPDOMapping1A00, 1, u32[:]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(u32[:], 0x60640020)
	if err := slave.SDOWrite(objTxPDOMapping1A00, 2, u32[:]); err != nil {
		return err
	}
	if err := slave.SDOWrite(objTxPDOMapping1A00, 0, []byte{2}); err != nil {
		return err
	}

	// Assign the mapped PDOs: 0x1C12 <- 0x1600, 0x1C13 <- 0x1A00.
	if err := slave.SDOWrite(objRxPDOAssign1C12, 0, []byte{0}); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(u16[:], objRxPDOMapping1600)
	if err := slave.SDOWrite(objRxPDOAssign1C12, 1, u16[:]); err != nil {
		return err
	}
	if err := slave.SDOWrite(objRxPDOAssign1C12, 0, []byte{1}); err != nil {
		return err
	}

	if err := slave.SDOWrite(objTxPDOAssign1C13, 0, []byte{0}); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(u16[:], objTxPDOMapping1A00)
	if err := slave.SDOWrite(objTxPDOAssign1C13, 1, u16[:]); err != nil {
		return err
	}
	if err := slave.SDOWrite(objTxPDOAssign1C13, 0, []byte{1}); err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(u32[:], followingErrorWindowPulses)
	if err := slave.SDOWrite(objFollowingErrorWindow, 0, u32[:]); err != nil {
		return fmt.Errorf("following error window: %w", err)
	}

	if cfg.ProfileVelocityRPM > 0 {
		binary.LittleEndian.PutUint32(u32[:], rpmToPulsePerSec(cfg.ProfileVelocityRPM))
		if err := slave.SDOWrite(objProfileVelocity, 0, u32[:]); err != nil {
			return fmt.Errorf("profile velocity: %w", err)
		}
	}
	if cfg.ProfileAccRPMPerS > 0 {
		binary.LittleEndian.PutUint32(u32[:], rpmToPulsePerSec(cfg.ProfileAccRPMPerS))
		if err := slave.SDOWrite(objProfileAcceleration, 0, u32[:]); err != nil {
			return fmt.Errorf("profile acceleration: %w", err)
		}
	}
	if cfg.ProfileDecRPMPerS > 0 {
		binary.LittleEndian.PutUint32(u32[:], rpmToPulsePerSec(cfg.ProfileDecRPMPerS))
		if err := slave.SDOWrite(objProfileDeceleration, 0, u32[:]); err != nil {
			return fmt.Errorf("profile deceleration: %w", err)
		}
	}

	return nil
}

func rpmToPulsePerSec(rpm float64) uint32 {
	return uint32(rpm / 60.0 * axis.PulsesPerRevDriver)
}

// Shutdown runs the ordered shutdown sequence: hold every axis frozen at
// frozenTargets for shutdownHoldCycles PDO exchanges so drives latch the
// position, lower the controlword through Disable Operation -> Shutdown
// -> Disable Voltage, then step the bus back down to INIT.
func (m *Manager) Shutdown(ctx context.Context, frozenTargets map[axis.ID]int64) error {
	slaveCount := m.bus.SlaveCount()

	for i := 0; i < shutdownHoldCycles; i++ {
		m.writeAll(slaveCount, frozenTargets, ctrlShutdownHoldControlword(frozenTargets))
		if err := m.bus.SendProcessData(); err != nil {
			return fmt.Errorf("shutdown hold: %w", err)
		}
		m.clock.Sleep(shutdownHoldPeriod)
	}

	for _, cw := range []uint16{ctrlDisableOp, ctrlShutdown, ctrlDisableVoltage} {
		m.writeControlword(slaveCount, frozenTargets, cw)
		if err := m.bus.SendProcessData(); err != nil {
			return fmt.Errorf("shutdown controlword %#x: %w", cw, err)
		}
		m.clock.Sleep(shutdownHoldPeriod)
	}

	for _, state := range []master.State{master.StateSafeOp, master.StatePreOp, master.StateInit} {
		if err := m.bus.StateWrite(state); err != nil {
			return fmt.Errorf("transition to %s: %w", state, err)
		}
	}

	if err := m.bus.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	log.Infof("[LIFECYCLE] shutdown complete")
	return nil
}

// ctrlShutdownHoldControlword is the controlword used while holding
// position during shutdown: Enable Operation, so the drive keeps
// actively servoing the frozen target instead of coasting.
func ctrlShutdownHoldControlword(map[axis.ID]int64) uint16 {
	return 0x000F
}

func (m *Manager) writeAll(slaveCount int, targets map[axis.ID]int64, controlword uint16) {
	m.writeControlword(slaveCount, targets, controlword)
}

func (m *Manager) writeControlword(slaveCount int, targets map[axis.ID]int64, controlword uint16) {
	for i := 0; i < slaveCount; i++ {
		slave, err := m.bus.Slave(i)
		if err != nil {
			continue
		}
		buf := pdo.EncodeBytes(pdo.RxFrame{
			Controlword:    controlword,
			TargetPosition: int32(targets[axis.ID(i)]),
		})
		copy(slave.Output(), buf)
	}
}
