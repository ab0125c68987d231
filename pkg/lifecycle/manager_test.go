package lifecycle

import (
	"context"
	"testing"
	"time"

	"cspmotion/pkg/axis"
	"cspmotion/pkg/cia402"
	"cspmotion/pkg/master"
	"cspmotion/pkg/master/fake"
	"cspmotion/pkg/pdo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// driveToOperationEnabled runs slave i's CiA 402 state machine forward by
// hand, the way pkg/loop would over several real cycles, so shutdown can
// be tested in isolation from the Control Loop.
func driveToOperationEnabled(t *testing.T, m *fake.Master, i int) {
	t.Helper()
	slave, err := m.Slave(i)
	require.NoError(t, err)
	driver := cia402.New()
	for cycle := 0; cycle < 6; cycle++ {
		tx := pdo.DecodeBytes(slave.Input())
		cw, _ := driver.Next(tx.Statusword)
		buf := pdo.EncodeBytes(pdo.RxFrame{Controlword: cw, TargetPosition: tx.ActualPosition})
		copy(slave.Output(), buf)
		require.NoError(t, m.SendProcessData())
	}
	tx := pdo.DecodeBytes(slave.Input())
	require.Equal(t, uint16(0x0027), tx.Statusword, "slave %d did not reach Operation Enabled", i)
}

func instantClock() Clock {
	return Clock{Now: time.Now, Sleep: func(time.Duration) {}}
}

func TestInitTransitionsToOP(t *testing.T) {
	m := fake.New(2)
	mgr := New(m, 10*time.Millisecond, instantClock())

	axes := map[axis.ID]axis.Config{
		0: axis.DefaultConfig(),
		1: axis.DefaultConfig(),
	}
	err := mgr.Init(context.Background(), "eth0", 2, axes)
	require.NoError(t, err)

	state, err := m.StateRead()
	require.NoError(t, err)
	assert.Equal(t, master.StateOp, state)
}

func TestInitFailsAfterRetriesOnSlaveCountMismatch(t *testing.T) {
	m := fake.New(1)
	mgr := New(m, 10*time.Millisecond, instantClock())

	err := mgr.Init(context.Background(), "eth0", 2, map[axis.ID]axis.Config{})
	assert.Error(t, err)
}

func TestInitWritesCSPConfiguration(t *testing.T) {
	m := fake.New(1)
	mgr := New(m, 10*time.Millisecond, instantClock())

	axes := map[axis.ID]axis.Config{0: axis.DefaultConfig()}
	require.NoError(t, mgr.Init(context.Background(), "eth0", 1, axes))

	slave, err := m.Slave(0)
	require.NoError(t, err)

	buf := make([]byte, 1)
	_, err = slave.SDORead(objModesOfOperation, 0, buf)
	require.NoError(t, err)
	assert.Equal(t, byte(cspModeOfOperation), buf[0])
}

func TestShutdownSequenceFreezesAndClosesBus(t *testing.T) {
	m := fake.New(1)
	mgr := New(m, 10*time.Millisecond, instantClock())

	axes := map[axis.ID]axis.Config{0: axis.DefaultConfig()}
	require.NoError(t, mgr.Init(context.Background(), "eth0", 1, axes))
	driveToOperationEnabled(t, m, 0)

	err := mgr.Shutdown(context.Background(), map[axis.ID]int64{0: 42})
	require.NoError(t, err)

	state, err := m.StateRead()
	require.NoError(t, err)
	assert.Equal(t, master.StateInit, state)

	slave, err := m.Slave(0)
	require.NoError(t, err)
	tx := pdo.DecodeBytes(slave.Input())
	assert.Equal(t, int32(42), tx.ActualPosition)
}
