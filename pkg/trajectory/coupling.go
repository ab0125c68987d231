package trajectory

import "cspmotion/pkg/axis"

// CouplingConfig tunes the optional cross-coupling correction described in
// spec.md's Open Questions: a small corrective pull applied to each axis's
// interpolated target, proportional to how far it has drifted from the
// average of the other axes currently in motion. It is inert unless every
// configured participant is simultaneously running a segment, so it never
// activates on a lone single-axis move.
type CouplingConfig struct {
	Enabled bool
	// Gain is the correction fraction applied per cycle, in [0, 1].
	// Values above ~0.5 are not guaranteed stable; spec.md leaves the
	// exact bound to the implementer (see DESIGN.md).
	Gain float64
}

// DefaultCouplingGain is applied when coupling is enabled without an
// explicit gain.
const DefaultCouplingGain = 0.10

// Correct applies the cross-coupling correction to targets, a map of this
// cycle's S-curve-interpolated target per axis, given each axis's current
// measured actual position. It returns a new map; targets is never
// mutated in place.
//
// Correction only runs when moving contains every key in targets (i.e.
// every participant is simultaneously in motion) and faulted is false;
// otherwise targets is returned unchanged.
func Correct(cfg CouplingConfig, targets map[axis.ID]int64, actual map[axis.ID]int64, moving map[axis.ID]bool, faulted bool) map[axis.ID]int64 {
	if !cfg.Enabled || faulted || len(targets) < 2 {
		return targets
	}
	for id := range targets {
		if !moving[id] {
			return targets
		}
	}

	gain := cfg.Gain
	if gain == 0 {
		gain = DefaultCouplingGain
	}

	var sumError float64
	errors := make(map[axis.ID]float64, len(targets))
	for id, target := range targets {
		e := float64(target - actual[id])
		errors[id] = e
		sumError += e
	}
	meanError := sumError / float64(len(targets))

	corrected := make(map[axis.ID]int64, len(targets))
	for id, target := range targets {
		drift := errors[id] - meanError
		corrected[id] = target + int64(drift*gain)
	}
	return corrected
}
