package trajectory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSmoothEndpoints(t *testing.T) {
	assert.InDelta(t, 0, Smooth(0), 1e-9)
	assert.InDelta(t, 1, Smooth(1), 1e-9)
	assert.InDelta(t, 0.5, Smooth(0.5), 1e-9)
}

func TestSmoothMonotonicNonDecreasing(t *testing.T) {
	prev := Smooth(0)
	for i := 1; i <= 100; i++ {
		cur := Smooth(float64(i) / 100)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestSmoothDerivativeZeroAtEndpoints(t *testing.T) {
	const h = 1e-6
	leftSlope := (Smooth(h) - Smooth(0)) / h
	rightSlope := (Smooth(1) - Smooth(1-h)) / h
	assert.InDelta(t, 0, leftSlope, 1e-3)
	assert.InDelta(t, 0, rightSlope, 1e-3)
}

func TestDurationClampedToMinimum(t *testing.T) {
	d := durationFor(0, 1, 6000, 16_777_216)
	assert.Equal(t, MinDuration, d)
}

func TestDurationForS1(t *testing.T) {
	// spec.md S1: Z axis, 50 RPM, -50mm -> -139_810_336 pulses.
	d := durationFor(0, -139_810_336, 50, 16_777_216)
	assert.InDelta(t, 10.0, d.Seconds(), 0.01)
}

func TestEvaluateCompletionIsPositionBased(t *testing.T) {
	start := time.Now()
	seg := NewSegment(0, 1_000_000, 60, 16_777_216, start)

	// Far from the end and well before start_time+duration: not done.
	_, done := seg.Evaluate(start, 0)
	assert.False(t, done)

	// Actual already within threshold of End, even though elapsed time
	// hasn't reached duration: done immediately (time-based completion is
	// deliberately not used).
	_, done = seg.Evaluate(start.Add(time.Millisecond), 1_000_000-10_000)
	assert.True(t, done)
}

func TestEvaluateClampsProgressAtOne(t *testing.T) {
	start := time.Now()
	seg := NewSegment(0, 10_000_000, 60, 16_777_216, start)
	target, done := seg.Evaluate(start.Add(seg.Duration*10), 9_000_000)
	assert.Equal(t, seg.End, target)
	assert.False(t, done) // actual still outside completion threshold
}

func TestEvaluateElapsedNeverNegative(t *testing.T) {
	start := time.Now()
	seg := NewSegment(0, 1_000_000, 60, 16_777_216, start)
	target, _ := seg.Evaluate(start.Add(-time.Second), 0)
	assert.Equal(t, seg.Start, target)
}
