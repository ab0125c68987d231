package trajectory

import (
	"time"

	"cspmotion/pkg/axis"

	uuid "github.com/satori/go.uuid"
)

// Move is one axis's requested absolute target, already resolved from mm
// to driver-scale pulses and offset-corrected by the caller (the Control
// Loop, which owns each axis's origin offset).
type Move struct {
	Axis               axis.ID
	TargetPulse        int64
	ProfileVelocityRPM float64
}

// Batch computes one Segment per move, all sharing a single start time and
// a single duration: the maximum of each move's individually-computed
// duration, clamped to MinDuration. This is what makes a set of moves
// submitted in the same cycle arrive together instead of finishing at
// different times.
//
// actual supplies each axis's current measured position, used both as the
// segment's start point and for the initial distance computation.
//
// The returned batchID is a UUIDv4 used only to correlate this batch's log
// lines across axes; it has no effect on scheduling.
func Batch(moves []Move, actual map[axis.ID]int64, now time.Time) (segments map[axis.ID]Segment, batchID string) {
	if len(moves) == 0 {
		return nil, ""
	}
	batchID = uuid.NewV4().String()

	var maxDuration time.Duration
	for _, mv := range moves {
		start := actual[mv.Axis]
		d := durationFor(start, mv.TargetPulse, mv.ProfileVelocityRPM, axis.PulsesPerRevDriver)
		if d > maxDuration {
			maxDuration = d
		}
	}
	if maxDuration < MinDuration {
		maxDuration = MinDuration
	}

	segments = make(map[axis.ID]Segment, len(moves))
	for _, mv := range moves {
		segments[mv.Axis] = Segment{
			Start:     actual[mv.Axis],
			End:       mv.TargetPulse,
			Duration:  maxDuration,
			StartTime: now,
		}
	}
	return segments, batchID
}
