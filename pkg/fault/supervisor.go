// Package fault detects drive and cross-axis faults and fans a stop out to
// every axis. It runs between PDO receive and CiA 402 evaluation each
// cycle: Sync Guard first, then Supervisor, per the ordering constraint on
// the position-difference emergency stop.
package fault

import "cspmotion/pkg/axis"

const statuswordFaultBit = 0x0008

// FreezeTargets returns a target-pulse map with every axis pinned to its
// current measured position, the fan-out action both the Supervisor and
// the Sync Guard take on trip: trajectories are abandoned and the axis
// holds exactly where it is.
func FreezeTargets(actual map[axis.ID]int64) map[axis.ID]int64 {
	frozen := make(map[axis.ID]int64, len(actual))
	for id, pos := range actual {
		frozen[id] = pos
	}
	return frozen
}

// Supervisor scans statuswords for the CiA 402 Fault bit and latches a
// fan-out stop across every axis until every faulting drive has cleared.
type Supervisor struct {
	latched bool
}

// NewSupervisor returns a Supervisor with no fault latched.
func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

// Scan inspects this cycle's statuswords and returns whether a fault is
// (still) latched. Once latched, it stays latched until every statusword's
// Fault bit has cleared, at which point the CiA 402 Driver on each
// previously-faulted axis will have had a chance to Fault Reset.
func (s *Supervisor) Scan(statuswords map[axis.ID]uint16) bool {
	anyFault := false
	for _, sw := range statuswords {
		if sw&statuswordFaultBit != 0 {
			anyFault = true
			break
		}
	}
	if anyFault {
		s.latched = true
	} else {
		s.latched = false
	}
	return s.latched
}

// Latched reports the most recent Scan result without re-scanning.
func (s *Supervisor) Latched() bool {
	return s.latched
}
