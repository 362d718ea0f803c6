package surface

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tricked-dev/SolidVerdant/internal/api"
	"github.com/Tricked-dev/SolidVerdant/internal/store"
)

type recordingNotifier struct {
	mu          sync.Mutex
	calls       []string
	lastElapsed time.Duration
	lastProject *string
	lastDesc    string
	errors      []string
}

func (n *recordingNotifier) ShowIdle() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, "idle")
}

func (n *recordingNotifier) ShowTracking(elapsed time.Duration, projectName, taskName *string, description string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, "tracking")
	n.lastElapsed = elapsed
	n.lastProject = projectName
	n.lastDesc = description
}

func (n *recordingNotifier) ShowPaused(elapsed time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, "paused")
	n.lastElapsed = elapsed
}

func (n *recordingNotifier) Hide() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, "hidden")
}

func (n *recordingNotifier) ShowError(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *recordingNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.calls) == 0 {
		return ""
	}
	return n.calls[len(n.calls)-1]
}

type fakeTracker struct {
	mu         sync.Mutex
	startEntry *api.TimeEntry
	startErr   error
	stopErr    error
	started    []string
	stopped    []string
}

func (f *fakeTracker) StartEntry(ctx context.Context, orgID, memberID string, projectID, taskID *string, description string) (*api.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, description)
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.startEntry, nil
}

func (f *fakeTracker) StopEntry(ctx context.Context, orgID, entryID, memberID string, start time.Time) (*api.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, entryID)
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	end := time.Now()
	return &api.TimeEntry{ID: entryID, OrganizationID: orgID, Start: start, End: &end}, nil
}

type notifRig struct {
	kv       store.KV
	svc      *fakeTracker
	notifier *recordingNotifier
	snaps    *store.SnapshotStore
	settings *store.SettingsStore
	widget   *WidgetStore
	bus      *Bus
	ctrl     *NotificationController
	now      time.Time
}

func newNotifRig(t *testing.T) *notifRig {
	t.Helper()
	kv, err := store.OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	r := &notifRig{
		kv:       kv,
		svc:      &fakeTracker{},
		notifier: &recordingNotifier{},
		now:      time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	r.snaps = store.NewSnapshotStore(kv)
	r.settings = store.NewSettingsStore(kv)
	r.widget = NewWidgetStore(kv)
	r.bus = NewBus()
	r.ctrl = NewNotificationController(r.svc, r.notifier, r.snaps, r.settings, r.widget, r.bus).
		WithClock(func() time.Time { return r.now })
	return r
}

func (r *notifRig) info() TrackingInfo {
	projectName := "Website"
	return TrackingInfo{
		OrganizationID: "o1",
		MemberID:       "m1",
		ProjectName:    &projectName,
		Description:    "homepage copy",
	}
}

func TestStartShowsTrackingAndWidget(t *testing.T) {
	r := newNotifRig(t)
	sub := r.bus.Subscribe()
	defer r.bus.Unsubscribe(sub)

	start := r.now.Add(-10 * time.Second)
	r.ctrl.Start(start, "e1", r.info())

	assert.Equal(t, NotifTracking, r.ctrl.State())
	assert.Equal(t, "tracking", r.notifier.last())
	assert.Equal(t, 10*time.Second, r.notifier.lastElapsed)

	snap, err := r.widget.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.True(t, snap.Tracking)
	assert.Equal(t, start, snap.Start)

	evt := <-sub.C
	assert.Equal(t, EventTrackingStarted, evt.Kind)
	assert.Equal(t, "e1", evt.EntryID)
}

func TestElapsedRecomputedFromEpoch(t *testing.T) {
	r := newNotifRig(t)
	r.ctrl.Start(r.now, "e1", r.info())

	r.now = r.now.Add(42 * time.Second)
	assert.Equal(t, 42*time.Second, r.ctrl.Elapsed())

	r.now = r.now.Add(18 * time.Second)
	r.ctrl.Render()
	assert.Equal(t, time.Minute, r.notifier.lastElapsed)
}

// Pause stops the real entry and remembers its context; resume starts a
// fresh entry with a new identity and a new epoch.
func TestPauseResume(t *testing.T) {
	r := newNotifRig(t)
	start := r.now
	r.ctrl.Start(start, "e1", r.info())
	require.NoError(t, r.snaps.Save(store.ActiveEntrySnapshot{
		EntryID: "e1", OrganizationID: "o1", UserID: "u1", Start: start,
	}))

	r.now = r.now.Add(125 * time.Second)
	require.NoError(t, r.ctrl.Pause(context.Background()))

	assert.Equal(t, NotifPaused, r.ctrl.State())
	assert.Equal(t, 125*time.Second, r.ctrl.Elapsed())
	assert.Equal(t, "00:02:05", FormatElapsed(r.ctrl.Elapsed()))
	assert.Equal(t, []string{"e1"}, r.svc.stopped)

	// Widget shows inactive between pause and resume.
	wsnap, err := r.widget.Load()
	require.NoError(t, err)
	require.NotNil(t, wsnap)
	assert.False(t, wsnap.Tracking)

	snap, err := r.snaps.Load()
	require.NoError(t, err)
	assert.Nil(t, snap, "active snapshot cleared on pause")

	ps, err := r.snaps.LoadPaused()
	require.NoError(t, err)
	require.NotNil(t, ps)
	assert.Equal(t, 125*time.Second, ps.Elapsed)

	// Resume: new entry, new start time.
	r.now = r.now.Add(time.Minute)
	r.svc.startEntry = &api.TimeEntry{
		ID: "e2", OrganizationID: "o1", UserID: "u1", Start: r.now,
	}
	require.NoError(t, r.ctrl.Resume(context.Background()))

	assert.Equal(t, NotifTracking, r.ctrl.State())
	assert.Equal(t, []string{"homepage copy"}, r.svc.started)

	snap, err = r.snaps.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "e2", snap.EntryID, "resume replaces the entry identity")

	wsnap, err = r.widget.Load()
	require.NoError(t, err)
	require.NotNil(t, wsnap)
	assert.True(t, wsnap.Tracking)
	assert.Equal(t, r.now, wsnap.Start)

	ps, err = r.snaps.LoadPaused()
	require.NoError(t, err)
	assert.Nil(t, ps, "paused record cleared on resume")
}

// A failed pause leaves the server tracking, so the surfaces must roll back
// to Tracking instead of showing a pause that never happened.
func TestPauseStopFailureRevertsToTracking(t *testing.T) {
	r := newNotifRig(t)
	sub := r.bus.Subscribe()
	defer r.bus.Unsubscribe(sub)
	start := r.now
	r.ctrl.Start(start, "e1", r.info())
	r.svc.stopErr = api.ErrNetworkTimeout

	r.now = r.now.Add(time.Minute)
	err := r.ctrl.Pause(context.Background())
	require.Error(t, err)

	assert.Equal(t, NotifTracking, r.ctrl.State())
	assert.Equal(t, time.Minute, r.ctrl.Elapsed(), "epoch unchanged by the failed pause")
	assert.NotEmpty(t, r.notifier.errors)
	assert.Equal(t, "tracking", r.notifier.last())

	wsnap, loadErr := r.widget.Load()
	require.NoError(t, loadErr)
	require.NotNil(t, wsnap)
	assert.True(t, wsnap.Tracking, "widget reverted after the failed stop")
	assert.Equal(t, start, wsnap.Start)

	ps, loadErr := r.snaps.LoadPaused()
	require.NoError(t, loadErr)
	assert.Nil(t, ps, "no paused record for a pause that did not happen")

	// A started event from Start, then the invalidation nudge.
	evt := <-sub.C
	assert.Equal(t, EventTrackingStarted, evt.Kind)
	evt = <-sub.C
	assert.Equal(t, EventStateInvalidated, evt.Kind)
}

func TestApplyIdleHonorsSettings(t *testing.T) {
	r := newNotifRig(t)

	r.ctrl.ApplyIdle()
	assert.Equal(t, NotifHidden, r.ctrl.State())
	assert.Equal(t, "hidden", r.notifier.last())

	require.NoError(t, r.settings.SetAlwaysShowNotification(true))
	r.ctrl.ApplyIdle()
	assert.Equal(t, NotifIdle, r.ctrl.State())
	assert.Equal(t, "idle", r.notifier.last())
}

func TestUpdateInfoInPlace(t *testing.T) {
	r := newNotifRig(t)
	r.ctrl.Start(r.now, "e1", r.info())

	newName := "Backend"
	r.ctrl.UpdateInfo(nil, nil, &newName, nil, "reviewing")

	assert.Equal(t, NotifTracking, r.ctrl.State(), "tracking state unchanged")
	require.NotNil(t, r.notifier.lastProject)
	assert.Equal(t, "Backend", *r.notifier.lastProject)
	assert.Equal(t, "reviewing", r.notifier.lastDesc)

	snap, err := r.widget.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.NotNil(t, snap.ProjectName)
	assert.Equal(t, "Backend", *snap.ProjectName)
}

func TestRestorePaused(t *testing.T) {
	r := newNotifRig(t)
	projectName := "Website"
	r.ctrl.RestorePaused(store.PausedSession{
		OrganizationID: "o1",
		MemberID:       "m1",
		ProjectName:    &projectName,
		Description:    "homepage copy",
		Elapsed:        30 * time.Second,
	})
	assert.Equal(t, NotifPaused, r.ctrl.State())
	assert.Equal(t, 30*time.Second, r.ctrl.Elapsed())
}
