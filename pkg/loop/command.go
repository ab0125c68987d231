package loop

import "cspmotion/pkg/axis"

// Command is the tagged variant accepted by the single-producer command
// channel into the Control Loop. Each concrete type below is one arm;
// Loop.Run type-switches on the concrete type rather than dispatching on
// a string tag.
type Command interface {
	axisTarget() axis.ID
}

// SetAxis changes an axis's mechanical kind (and therefore its
// mm-per-revolution ratio). Commands enqueued before Run stay in the
// channel buffer and are applied on the loop's first cycle; the Lifecycle
// Manager's init retries do not see them.
type SetAxis struct {
	Axis axis.ID
	Kind axis.Kind
}

// SetVelocity changes an axis's configured profile velocity, in RPM.
type SetVelocity struct {
	Axis axis.ID
	RPM  float64
}

// SetAccel changes an axis's configured profile acceleration, in RPM/s.
type SetAccel struct {
	Axis      axis.ID
	RPMPerSec float64
}

// SetOrigin sets the axis's offset_pulse to its current measured actual
// position, so that subsequent MoveToMm commands are relative to "here".
type SetOrigin struct {
	Axis axis.ID
}

// MoveToMm requests an absolute move to TargetMm, measured from the
// axis's current origin. Collected into a batch and handed to the
// Synchronizer once per cycle.
type MoveToMm struct {
	Axis     axis.ID
	TargetMm float64
}

// StopAll causes the loop to run the shutdown sequence and exit. It
// targets no axis; its axisTarget returns -1 so StopAll satisfies Command.
type StopAll struct{}

func (c SetAxis) axisTarget() axis.ID     { return c.Axis }
func (c SetVelocity) axisTarget() axis.ID { return c.Axis }
func (c SetAccel) axisTarget() axis.ID    { return c.Axis }
func (c SetOrigin) axisTarget() axis.ID   { return c.Axis }
func (c MoveToMm) axisTarget() axis.ID    { return c.Axis }
func (c StopAll) axisTarget() axis.ID     { return -1 }
