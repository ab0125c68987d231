// Package loop implements the hard-periodic Control Loop: the single
// goroutine that drains commands, runs the Synchronizer, exchanges PDOs,
// runs the Sync Guard and Fault Supervisor, drives each axis's CiA 402
// state machine and trajectory, and publishes shared state, once per
// cycle at a fixed period.
package loop

import (
	"context"
	"fmt"
	"time"

	"cspmotion/pkg/axis"
	"cspmotion/pkg/fault"
	"cspmotion/pkg/master"
	"cspmotion/pkg/pdo"
	"cspmotion/pkg/trajectory"

	log "github.com/sirupsen/logrus"
)

// Shutdowner executes the ordered shutdown sequence (pkg/lifecycle.Manager
// satisfies this) once the loop has frozen every axis's target.
type Shutdowner interface {
	Shutdown(ctx context.Context, frozenTargets map[axis.ID]int64) error
}

// Loop is the Control Loop. Build one with New, then call Run from a
// dedicated goroutine.
type Loop struct {
	bus        master.Master
	lifecycle  Shutdowner
	clock      Clock
	period     time.Duration
	commands   chan Command
	state      *StateTable
	syncGuard  *fault.SyncGuard
	supervisor *fault.Supervisor
	coupling   trajectory.CouplingConfig

	axes  map[axis.ID]*axisRuntime
	order []axis.ID // stable iteration order, also slave index order
}

// Config configures a new Loop.
type Config struct {
	Bus             master.Master
	Lifecycle       Shutdowner
	Clock           Clock
	Period          time.Duration
	Axes            map[axis.ID]axis.Config
	SyncThreshold   int64 // 0 disables the Sync Guard
	CouplingEnabled bool
	CouplingGain    float64
}

// New builds a Loop and its per-axis runtime state, in slave-index order
// (axis.ID values must be contiguous starting at 0).
func New(cfg Config) *Loop {
	l := &Loop{
		bus:        cfg.Bus,
		lifecycle:  cfg.Lifecycle,
		clock:      cfg.Clock,
		period:     cfg.Period,
		commands:   make(chan Command, 64),
		state:      NewStateTable(),
		supervisor: fault.NewSupervisor(),
		coupling:   trajectory.CouplingConfig{Enabled: cfg.CouplingEnabled, Gain: cfg.CouplingGain},
		axes:       make(map[axis.ID]*axisRuntime, len(cfg.Axes)),
	}
	if cfg.SyncThreshold > 0 {
		l.syncGuard = fault.NewSyncGuard(cfg.SyncThreshold)
	}
	for i := 0; i < len(cfg.Axes); i++ {
		id := axis.ID(i)
		l.axes[id] = newAxisRuntime(i, cfg.Axes[id])
		l.order = append(l.order, id)
	}
	return l
}

// Enqueue submits cmd to the command channel. Safe to call from any
// goroutine; never blocks the caller for longer than the channel's
// buffer allows.
func (l *Loop) Enqueue(cmd Command) {
	l.commands <- cmd
}

// State returns the Shared-State Publisher readers should snapshot from.
func (l *Loop) State() *StateTable {
	return l.state
}

// Run executes the steady-state cycle until ctx is cancelled or a
// StopAll command is drained, then runs the shutdown sequence. It
// assumes the bus is already in OP (pkg/lifecycle.Manager.Init does this
// before Run is called). Init writes no targets; every axis without a
// segment is commanded to the actual position decoded in the same cycle,
// from the first cycle on.
func (l *Loop) Run(ctx context.Context) error {
	clk := l.clock
	for {
		cycleStart := clk.Now()

		stop, err := l.runCycle()
		if err != nil {
			log.Errorf("[LOOP] cycle error, shutting down: %v", err)
			return l.shutdown(ctx)
		}
		if stop {
			return l.shutdown(ctx)
		}

		select {
		case <-ctx.Done():
			return l.shutdown(ctx)
		default:
		}

		elapsed := clk.Now().Sub(cycleStart)
		remaining := l.period - elapsed
		if remaining > 0 {
			clk.Sleep(remaining)
		} else {
			log.Warnf("[LOOP] cycle overrun: took %s, budget %s", elapsed, l.period)
		}
	}
}

// runCycle executes steps 1-7 of one tick and reports whether a StopAll
// was drained.
func (l *Loop) runCycle() (stop bool, err error) {
	now := l.clock.Now()

	moves, stop := l.drainCommands(now)

	if !l.anyFaultLatched() {
		l.runSynchronizer(moves, now)
	}

	if err := l.bus.ReceiveProcessData(); err != nil {
		return false, fmt.Errorf("loop: receive process data: %w", err)
	}
	statuswords := l.decodeInputs()

	l.runGuards(statuswords)

	l.evaluateAndDrive(now)

	if err := l.bus.SendProcessData(); err != nil {
		return false, fmt.Errorf("loop: send process data: %w", err)
	}

	l.publish(statuswords)

	return stop, nil
}

func (l *Loop) drainCommands(now time.Time) (moves []trajectory.Move, stop bool) {
	for {
		select {
		case cmd := <-l.commands:
			switch c := cmd.(type) {
			case StopAll:
				return moves, true
			case SetAxis:
				if a, ok := l.axes[c.Axis]; ok {
					a.config.Kind = c.Kind
				}
			case SetVelocity:
				if a, ok := l.axes[c.Axis]; ok {
					a.config.ProfileVelocityRPM = c.RPM
				}
			case SetAccel:
				if a, ok := l.axes[c.Axis]; ok {
					a.config.ProfileAccRPMPerS = c.RPMPerSec
				}
			case SetOrigin:
				if a, ok := l.axes[c.Axis]; ok {
					a.offsetPulse = a.lastActual
				}
			case MoveToMm:
				a, ok := l.axes[c.Axis]
				if !ok {
					log.Warnf("[LOOP] MoveToMm for unknown axis %v ignored", c.Axis)
					continue
				}
				rel, err := axis.MmToPulses(c.TargetMm, a.config.Kind)
				if err != nil {
					log.Warnf("[LOOP] MoveToMm %v: %v", c.Axis, err)
					continue
				}
				moves = append(moves, trajectory.Move{
					Axis:               c.Axis,
					TargetPulse:        rel + a.offsetPulse,
					ProfileVelocityRPM: a.config.ProfileVelocityRPM,
				})
			default:
				log.Warnf("[LOOP] unknown command %T ignored", cmd)
			}
		default:
			return moves, false
		}
	}
}

func (l *Loop) anyFaultLatched() bool {
	if l.supervisor.Latched() {
		return true
	}
	return l.syncGuard != nil && l.syncGuard.Tripped()
}

func (l *Loop) runSynchronizer(moves []trajectory.Move, now time.Time) {
	if len(moves) == 0 {
		return
	}
	actual := make(map[axis.ID]int64, len(l.axes))
	for id, a := range l.axes {
		actual[id] = a.lastActual
	}
	segments, batchID := trajectory.Batch(moves, actual, now)
	for id, seg := range segments {
		seg := seg
		l.axes[id].trajectory = &seg
	}
	log.Debugf("[LOOP] batch %s installed %d segment(s)", batchID, len(segments))
}

func (l *Loop) decodeInputs() map[axis.ID]uint16 {
	statuswords := make(map[axis.ID]uint16, len(l.order))
	for _, id := range l.order {
		a := l.axes[id]
		slave, err := l.bus.Slave(a.slave)
		if err != nil {
			log.Errorf("[LOOP] reading slave %d: %v", a.slave, err)
			continue
		}
		tx := pdo.DecodeBytes(slave.Input())
		a.lastStatus = tx.Statusword
		a.lastActual = int64(tx.ActualPosition)
		statuswords[id] = tx.Statusword
	}
	return statuswords
}

// runGuards runs the Sync Guard before the Fault Supervisor, per the
// ordering constraint on the position-difference emergency stop, and
// fans out a freeze on either trip.
func (l *Loop) runGuards(statuswords map[axis.ID]uint16) {
	if l.syncGuard != nil {
		relative := make(map[axis.ID]int64, len(l.axes))
		anyMoving := false
		for id, a := range l.axes {
			relative[id] = a.lastActual - a.offsetPulse
			if a.moving() {
				anyMoving = true
			}
		}
		if l.syncGuard.Check(relative, anyMoving) {
			l.freezeAll()
		}
	}

	if l.supervisor.Scan(statuswords) {
		l.freezeAll()
	}
}

func (l *Loop) freezeAll() {
	for _, a := range l.axes {
		a.trajectory = nil
		a.targetPulse = a.lastActual
	}
}

func (l *Loop) evaluateAndDrive(now time.Time) {
	targets := make(map[axis.ID]int64, len(l.axes))
	moving := make(map[axis.ID]bool, len(l.axes))
	actual := make(map[axis.ID]int64, len(l.axes))

	for id, a := range l.axes {
		actual[id] = a.lastActual
		if a.trajectory != nil {
			target, done := a.trajectory.Evaluate(now, a.lastActual)
			if done {
				a.trajectory = nil
			}
			targets[id] = target
			moving[id] = a.trajectory != nil
		} else {
			targets[id] = a.lastActual
			moving[id] = false
		}
	}

	targets = trajectory.Correct(l.coupling, targets, actual, moving, l.anyFaultLatched())

	for _, id := range l.order {
		a := l.axes[id]
		a.targetPulse = targets[id]

		controlword, _ := a.driver.Next(a.lastStatus)
		slave, err := l.bus.Slave(a.slave)
		if err != nil {
			log.Errorf("[LOOP] writing slave %d: %v", a.slave, err)
			continue
		}
		buf := pdo.EncodeBytes(pdo.RxFrame{
			Controlword:    controlword,
			TargetPosition: int32(a.targetPulse),
		})
		copy(slave.Output(), buf)
	}
}

func (l *Loop) publish(statuswords map[axis.ID]uint16) {
	snapshots := make(map[axis.ID]AxisSnapshot, len(l.axes))
	for id, a := range l.axes {
		snapshots[id] = AxisSnapshot{
			Statusword:     statuswords[id],
			Moving:         a.moving(),
			ActualPosition: a.lastActual,
			OffsetPulse:    a.offsetPulse,
		}
	}
	l.state.Publish(snapshots)
}

func (l *Loop) shutdown(ctx context.Context) error {
	l.freezeAll()
	frozen := make(map[axis.ID]int64, len(l.axes))
	for id, a := range l.axes {
		frozen[id] = a.targetPulse
	}
	if l.lifecycle == nil {
		return nil
	}
	return l.lifecycle.Shutdown(ctx, frozen)
}
