package fault

import (
	"cspmotion/pkg/axis"
)

// DefaultDebounceCycles is how many consecutive over-threshold cycles the
// Sync Guard requires before tripping. The un-debounced original trips on
// the first offending cycle; SPEC_FULL.md's resolution of that Open
// Question adds this debounce to absorb single-cycle PDO read glitches
// without masking a genuine desync (see DESIGN.md).
const DefaultDebounceCycles = 3

// SyncGuard trips an emergency stop when any two *adjacent* axes (by ID
// order) drift further apart than ThresholdPulses, for more than
// DebounceCycles consecutive cycles, while at least one axis is moving.
// It must run before the Fault Supervisor each cycle.
type SyncGuard struct {
	ThresholdPulses int64
	DebounceCycles  int

	overCount int
	tripped   bool
}

// NewSyncGuard returns a SyncGuard with the given threshold and
// DefaultDebounceCycles.
func NewSyncGuard(thresholdPulses int64) *SyncGuard {
	return &SyncGuard{ThresholdPulses: thresholdPulses, DebounceCycles: DefaultDebounceCycles}
}

// Check evaluates this cycle's relative (offset-corrected) positions and
// whether any axis currently has an installed trajectory. relative must be
// keyed by contiguous axis IDs starting at 0; adjacency is checked between
// ID i and i+1. It returns whether the guard is (still) tripped.
//
// Once tripped, Check continues to report true until Reset is called; a
// trip is a latched emergency stop, not a transient condition.
func (g *SyncGuard) Check(relative map[axis.ID]int64, anyMoving bool) bool {
	if g.tripped {
		return true
	}
	if !anyMoving || len(relative) < 2 {
		g.overCount = 0
		return false
	}

	over := false
	for i := axis.ID(0); int(i) < len(relative)-1; i++ {
		diff := relative[i] - relative[i+1]
		if diff < 0 {
			diff = -diff
		}
		if diff > g.ThresholdPulses {
			over = true
			break
		}
	}

	if !over {
		g.overCount = 0
		return false
	}

	g.overCount++
	if g.overCount > g.DebounceCycles {
		g.tripped = true
	}
	return g.tripped
}

// Tripped reports the latched trip state without re-evaluating.
func (g *SyncGuard) Tripped() bool {
	return g.tripped
}

// Reset clears a latched trip, e.g. once the operator has acknowledged
// the stop and re-homed the affected axes.
func (g *SyncGuard) Reset() {
	g.tripped = false
	g.overCount = 0
}
