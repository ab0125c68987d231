package loop

import (
	"sync"

	"cspmotion/pkg/axis"
)

// AxisSnapshot is the published 4-tuple for one axis: statusword, moving
// flag, current actual position, and origin offset, all driver-scale
// except Statusword.
type AxisSnapshot struct {
	Statusword     uint16
	Moving         bool
	ActualPosition int64
	OffsetPulse    int64
}

// StateTable is the Shared-State Publisher: a lock-guarded region the
// Control Loop writes once per cycle and any number of outside readers
// may read. The lock is held only for the copy, never across PDO or SDO
// I/O.
type StateTable struct {
	mu   sync.RWMutex
	axes map[axis.ID]AxisSnapshot
}

// NewStateTable returns an empty StateTable.
func NewStateTable() *StateTable {
	return &StateTable{axes: make(map[axis.ID]AxisSnapshot)}
}

// Publish atomically replaces the published snapshot for every axis in
// snapshots, relative to other publishers and to Snapshot/SnapshotAll
// readers.
func (t *StateTable) Publish(snapshots map[axis.ID]AxisSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, s := range snapshots {
		t.axes[id] = s
	}
}

// Snapshot returns the most recently published state for one axis under
// the read lock.
func (t *StateTable) Snapshot(id axis.ID) (AxisSnapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.axes[id]
	return s, ok
}

// SnapshotAll returns a copy of every axis's most recently published
// state.
func (t *StateTable) SnapshotAll() map[axis.ID]AxisSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[axis.ID]AxisSnapshot, len(t.axes))
	for id, s := range t.axes {
		out[id] = s
	}
	return out
}

// CurrentPositionMm is a derived helper: the snapshot's actual position,
// offset-corrected and converted to millimeters for kind.
func CurrentPositionMm(s AxisSnapshot, kind axis.Kind) (float64, error) {
	return axis.PulsesToMm(s.ActualPosition-s.OffsetPulse, kind)
}
