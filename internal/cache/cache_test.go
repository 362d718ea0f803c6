package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tricked-dev/SolidVerdant/internal/api"
	"github.com/Tricked-dev/SolidVerdant/internal/store"
)

func newTestKV(t *testing.T) store.KV {
	t.Helper()
	kv, err := store.OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func sampleData() ([]api.Project, []api.Task) {
	projects := []api.Project{
		{ID: "p1", Name: "Website"},
		{ID: "p2", Name: "Backend"},
	}
	tasks := []api.Task{
		{ID: "t1", Name: "Design", ProjectID: "p1"},
	}
	return projects, tasks
}

func TestCacheTTLBoundary(t *testing.T) {
	kv := newTestKV(t)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	c := New(kv, LookupTTL).WithClock(func() time.Time { return now })

	_, _, ok := c.Get("o1")
	assert.False(t, ok, "never populated reads as absent")

	projects, tasks := sampleData()
	require.NoError(t, c.Put("o1", projects, tasks))

	now = now.Add(LookupTTL)
	gotProjects, gotTasks, ok := c.Get("o1")
	assert.True(t, ok, "present up to and including the TTL")
	assert.Len(t, gotProjects, 2)
	assert.Len(t, gotTasks, 1)

	now = now.Add(time.Millisecond)
	_, _, ok = c.Get("o1")
	assert.False(t, ok, "absent past the TTL")

	// A fresh Put resets the age.
	require.NoError(t, c.Put("o1", projects, tasks))
	_, _, ok = c.Get("o1")
	assert.True(t, ok)
}

func TestTwoTTLsShareData(t *testing.T) {
	kv := newTestKV(t)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	lookup := New(kv, LookupTTL).WithClock(clock)
	selection := New(kv, SelectionTTL).WithClock(clock)

	projects, tasks := sampleData()
	require.NoError(t, selection.Put("o1", projects, tasks))

	now = now.Add(2 * time.Minute)
	_, _, ok := lookup.Get("o1")
	assert.False(t, ok, "lookup window already closed")
	_, _, ok = selection.Get("o1")
	assert.True(t, ok, "selection window still open")
}

func TestResolveNames(t *testing.T) {
	kv := newTestKV(t)
	c := New(kv, SelectionTTL)
	projects, tasks := sampleData()
	require.NoError(t, c.Put("o1", projects, tasks))

	p1, t1 := "p1", "t1"
	projectName, taskName := c.ResolveNames("o1", &p1, &t1)
	require.NotNil(t, projectName)
	require.NotNil(t, taskName)
	assert.Equal(t, "Website", *projectName)
	assert.Equal(t, "Design", *taskName)

	unknown := "p9"
	projectName, taskName = c.ResolveNames("o1", &unknown, nil)
	assert.Nil(t, projectName)
	assert.Nil(t, taskName)

	projectName, taskName = c.ResolveNames("o2", &p1, &t1)
	assert.Nil(t, projectName, "unknown org resolves nothing")
	assert.Nil(t, taskName)

	projectName, taskName = c.ResolveNames("o1", nil, nil)
	assert.Nil(t, projectName)
	assert.Nil(t, taskName)
}
