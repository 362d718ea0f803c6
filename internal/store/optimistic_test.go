package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimisticRoundTrip(t *testing.T) {
	kv := newTestKV(t)
	opt := NewOptimisticStore(kv)

	assert.Equal(t, OptimisticNone, opt.Read().Kind)

	projectName := "Website"
	require.NoError(t, opt.SetStarting(&projectName, nil))
	state := opt.Read()
	assert.Equal(t, OptimisticStarting, state.Kind)
	require.NotNil(t, state.ProjectName)
	assert.Equal(t, "Website", *state.ProjectName)
	assert.Nil(t, state.TaskName)
	assert.NotEmpty(t, state.ID)

	require.NoError(t, opt.SetStopping())
	assert.Equal(t, OptimisticStopping, opt.Read().Kind)

	require.NoError(t, opt.Clear())
	assert.Equal(t, OptimisticNone, opt.Read().Kind)
}

// A pending transition must never outlive its timeout: reading one created
// 30s+1ms ago yields None and clears the stale record.
func TestOptimisticTimeout(t *testing.T) {
	kv := newTestKV(t)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	opt := NewOptimisticStore(kv).WithClock(func() time.Time { return now })

	require.NoError(t, opt.SetStopping())

	now = now.Add(OptimisticTimeout)
	assert.Equal(t, OptimisticStopping, opt.Read().Kind, "at the boundary the state still holds")

	now = now.Add(time.Millisecond)
	assert.Equal(t, OptimisticNone, opt.Read().Kind, "past the boundary the state is gone")

	// The stale record was cleared, so even an earlier clock sees nothing.
	var raw OptimisticState
	ok, err := kv.GetJSON(PartitionTileState, keyOptimistic, &raw)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestOptimisticSurvivesRestart(t *testing.T) {
	kv := newTestKV(t)
	require.NoError(t, NewOptimisticStore(kv).SetStopping())

	// A second store over the same kv simulates a new process.
	assert.Equal(t, OptimisticStopping, NewOptimisticStore(kv).Read().Kind)
}
