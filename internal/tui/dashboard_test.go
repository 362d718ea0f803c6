package tui

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tricked-dev/SolidVerdant/internal/store"
	"github.com/Tricked-dev/SolidVerdant/internal/surface"
)

func newDashModel(t *testing.T) (Model, *surface.Bus) {
	t.Helper()
	kv, err := store.OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	bus := surface.NewBus()
	return NewModel(nil, nil, surface.NewWidgetStore(kv), bus, time.Minute), bus
}

// A broadcast from another surface must wake the dashboard and schedule a
// refresh ahead of the regular poll.
func TestBusEventSchedulesRefresh(t *testing.T) {
	m, bus := newDashModel(t)

	bus.Publish(surface.Event{Kind: surface.EventStateInvalidated})
	msg := m.waitBusCmd()()
	require.IsType(t, busMsg{}, msg)
	assert.Equal(t, surface.EventStateInvalidated, surface.Event(msg.(busMsg)).Kind)

	_, cmd := m.Update(msg)
	assert.NotNil(t, cmd, "a bus event hands back a refresh and a re-armed wait")
}

func TestQuitUnsubscribesFromBus(t *testing.T) {
	m, bus := newDashModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)

	// The subscription channel is closed, so the pending wait resolves to a
	// nil message instead of blocking forever.
	assert.Nil(t, m.waitBusCmd()())

	// Further publishes go nowhere.
	bus.Publish(surface.Event{Kind: surface.EventTrackingStarted})
	assert.Nil(t, m.waitBusCmd()())
}
