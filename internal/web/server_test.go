package web

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tricked-dev/SolidVerdant/internal/store"
	"github.com/Tricked-dev/SolidVerdant/internal/surface"
)

func newTestServer(t *testing.T) (*Server, *surface.WidgetStore) {
	t.Helper()
	kv, err := store.OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	widget := surface.NewWidgetStore(kv)
	srv := NewServer(widget)
	srv.now = func() time.Time {
		return time.Date(2024, 1, 1, 10, 2, 5, 0, time.UTC)
	}
	return srv, widget
}

func TestIndexNotTracking(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not tracking")
}

func TestIndexTracking(t *testing.T) {
	srv, widget := newTestServer(t)
	project := "Website"
	require.NoError(t, widget.Save(surface.WidgetSnapshot{
		Tracking:    true,
		Start:       time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		ProjectName: &project,
		Description: "homepage copy",
	}))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "00:02:05 Website - homepage copy")
	assert.Contains(t, rec.Body.String(), `http-equiv="refresh"`)
}
