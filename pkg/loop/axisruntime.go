package loop

import (
	"cspmotion/pkg/axis"
	"cspmotion/pkg/cia402"
	"cspmotion/pkg/trajectory"
)

// axisRuntime is the per-axis state owned exclusively by the loop
// goroutine; nothing outside it ever mutates this directly.
type axisRuntime struct {
	config axis.Config
	slave  int // index into the master's slave list

	offsetPulse int64
	targetPulse int64
	trajectory  *trajectory.Segment
	lastStatus  uint16
	lastActual  int64
	driver      *cia402.Driver
}

func newAxisRuntime(slaveIndex int, cfg axis.Config) *axisRuntime {
	return &axisRuntime{
		config: cfg,
		slave:  slaveIndex,
		driver: cia402.New(),
	}
}

func (a *axisRuntime) moving() bool {
	return a.trajectory != nil
}
