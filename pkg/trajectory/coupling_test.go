package trajectory

import (
	"testing"

	"cspmotion/pkg/axis"

	"github.com/stretchr/testify/assert"
)

func TestCorrectDisabledReturnsTargetsUnchanged(t *testing.T) {
	targets := map[axis.ID]int64{0: 100, 1: 200}
	actual := map[axis.ID]int64{0: 0, 1: 0}
	moving := map[axis.ID]bool{0: true, 1: true}
	got := Correct(CouplingConfig{Enabled: false}, targets, actual, moving, false)
	assert.Equal(t, targets, got)
}

func TestCorrectFaultedReturnsTargetsUnchanged(t *testing.T) {
	targets := map[axis.ID]int64{0: 100, 1: 200}
	actual := map[axis.ID]int64{0: 0, 1: 0}
	moving := map[axis.ID]bool{0: true, 1: true}
	got := Correct(CouplingConfig{Enabled: true, Gain: 0.5}, targets, actual, moving, true)
	assert.Equal(t, targets, got)
}

func TestCorrectInactiveUnlessAllParticipantsMoving(t *testing.T) {
	targets := map[axis.ID]int64{0: 100, 1: 200}
	actual := map[axis.ID]int64{0: 0, 1: 0}
	moving := map[axis.ID]bool{0: true, 1: false}
	got := Correct(CouplingConfig{Enabled: true, Gain: 0.5}, targets, actual, moving, false)
	assert.Equal(t, targets, got)
}

func TestCorrectSingleAxisNeverCorrected(t *testing.T) {
	targets := map[axis.ID]int64{0: 100}
	actual := map[axis.ID]int64{0: 0}
	moving := map[axis.ID]bool{0: true}
	got := Correct(CouplingConfig{Enabled: true, Gain: 0.5}, targets, actual, moving, false)
	assert.Equal(t, targets, got)
}

func TestCorrectPullsLaggingAxisForward(t *testing.T) {
	// axis 0 has advanced further (smaller error) than axis 1 (larger error):
	// axis 1 should be corrected toward a larger target (pulled forward),
	// axis 0 corrected toward a smaller one.
	targets := map[axis.ID]int64{0: 1000, 1: 1000}
	actual := map[axis.ID]int64{0: 900, 1: 500}
	moving := map[axis.ID]bool{0: true, 1: true}
	got := Correct(CouplingConfig{Enabled: true, Gain: 0.5}, targets, actual, moving, false)
	assert.Greater(t, got[1], targets[1])
	assert.Less(t, got[0], targets[0])
}

func TestCorrectZeroGainUsesDefault(t *testing.T) {
	targets := map[axis.ID]int64{0: 1000, 1: 1000}
	actual := map[axis.ID]int64{0: 900, 1: 500}
	moving := map[axis.ID]bool{0: true, 1: true}
	withDefault := Correct(CouplingConfig{Enabled: true, Gain: 0}, targets, actual, moving, false)
	withExplicit := Correct(CouplingConfig{Enabled: true, Gain: DefaultCouplingGain}, targets, actual, moving, false)
	assert.Equal(t, withExplicit, withDefault)
}

func TestCorrectEqualErrorsNoChange(t *testing.T) {
	targets := map[axis.ID]int64{0: 1000, 1: 1000}
	actual := map[axis.ID]int64{0: 500, 1: 500}
	moving := map[axis.ID]bool{0: true, 1: true}
	got := Correct(CouplingConfig{Enabled: true, Gain: 0.5}, targets, actual, moving, false)
	assert.Equal(t, targets, got)
}
