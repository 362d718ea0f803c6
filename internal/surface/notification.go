package surface

import (
	"context"
	"sync"
	"time"

	"github.com/Tricked-dev/SolidVerdant/internal/api"
	"github.com/Tricked-dev/SolidVerdant/internal/store"
)

// opTimeout bounds the network calls a controller issues on behalf of a user
// action.
const opTimeout = 5 * time.Second

type NotifState int

const (
	NotifHidden NotifState = iota
	NotifIdle
	NotifTracking
	NotifPaused
)

func (s NotifState) String() string {
	switch s {
	case NotifIdle:
		return "idle"
	case NotifTracking:
		return "tracking"
	case NotifPaused:
		return "paused"
	default:
		return "hidden"
	}
}

// TrackingInfo is the remembered context of the running entry: the ids needed
// to talk to the server and the names needed to render without it.
type TrackingInfo struct {
	OrganizationID string
	MemberID       string
	ProjectID      *string
	TaskID         *string
	ProjectName    *string
	TaskName       *string
	Description    string
}

// TrackerService is the slice of the remote API the notification needs.
type TrackerService interface {
	StartEntry(ctx context.Context, orgID, memberID string, projectID, taskID *string, description string) (*api.TimeEntry, error)
	StopEntry(ctx context.Context, orgID, entryID, memberID string, start time.Time) (*api.TimeEntry, error)
}

// NotificationController owns the persistent notification surface. Elapsed
// time is always recomputed from the fixed start epoch so renders never
// drift. Every transition that changes tracking visibility also refreshes the
// widget snapshot; the widget itself has no logic.
type NotificationController struct {
	svc       TrackerService
	notifier  Notifier
	snapshots *store.SnapshotStore
	settings  *store.SettingsStore
	widget    *WidgetStore
	bus       *Bus
	now       func() time.Time

	mu            sync.Mutex
	state         NotifState
	startTime     time.Time
	pausedElapsed time.Duration
	entryID       string
	info          TrackingInfo
}

func NewNotificationController(svc TrackerService, notifier Notifier, snapshots *store.SnapshotStore, settings *store.SettingsStore, widget *WidgetStore, bus *Bus) *NotificationController {
	return &NotificationController{
		svc:       svc,
		notifier:  notifier,
		snapshots: snapshots,
		settings:  settings,
		widget:    widget,
		bus:       bus,
		now:       time.Now,
		state:     NotifHidden,
	}
}

// WithClock replaces the time source, for tests.
func (c *NotificationController) WithClock(now func() time.Time) *NotificationController {
	c.now = now
	return c
}

func (c *NotificationController) State() NotifState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Elapsed reports the duration the current render should show.
func (c *NotificationController) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case NotifTracking:
		return c.now().Sub(c.startTime)
	case NotifPaused:
		return c.pausedElapsed
	default:
		return 0
	}
}

// Start transitions to Tracking for a confirmed running entry.
func (c *NotificationController) Start(startTime time.Time, entryID string, info TrackingInfo) {
	c.mu.Lock()
	c.state = NotifTracking
	c.startTime = startTime
	c.entryID = entryID
	c.info = info
	elapsed := c.now().Sub(startTime)
	c.mu.Unlock()

	c.notifier.ShowTracking(elapsed, info.ProjectName, info.TaskName, info.Description)
	c.saveWidget(true, startTime, info)
	c.bus.Publish(Event{Kind: EventTrackingStarted, EntryID: entryID})
}

// Restore re-adopts a persisted running entry after a process restart. It is
// the boot path: same presentation as Start but no start announcement, since
// nothing actually changed.
func (c *NotificationController) Restore(startTime time.Time, entryID string, info TrackingInfo) {
	c.mu.Lock()
	c.state = NotifTracking
	c.startTime = startTime
	c.entryID = entryID
	c.info = info
	elapsed := c.now().Sub(startTime)
	c.mu.Unlock()

	c.notifier.ShowTracking(elapsed, info.ProjectName, info.TaskName, info.Description)
	c.saveWidget(true, startTime, info)
}

// Render refreshes the visible notification without changing state; the tick
// path calls it to keep the elapsed display moving.
func (c *NotificationController) Render() {
	c.mu.Lock()
	state := c.state
	elapsed := time.Duration(0)
	switch state {
	case NotifTracking:
		elapsed = c.now().Sub(c.startTime)
	case NotifPaused:
		elapsed = c.pausedElapsed
	}
	info := c.info
	c.mu.Unlock()

	switch state {
	case NotifTracking:
		c.notifier.ShowTracking(elapsed, info.ProjectName, info.TaskName, info.Description)
	case NotifPaused:
		c.notifier.ShowPaused(elapsed)
	case NotifIdle:
		c.notifier.ShowIdle()
	case NotifHidden:
	}
}

// Pause captures the elapsed time, renders Paused immediately, then stops the
// real entry; the server has no first-class pause. A failed stop rolls the
// presentation back to Tracking, since the server still tracks the entry,
// and asks the other surfaces to reconcile.
func (c *NotificationController) Pause(ctx context.Context) error {
	c.mu.Lock()
	if c.state != NotifTracking {
		c.mu.Unlock()
		return nil
	}
	c.pausedElapsed = c.now().Sub(c.startTime)
	c.state = NotifPaused
	elapsed := c.pausedElapsed
	entryID := c.entryID
	info := c.info
	start := c.startTime
	c.mu.Unlock()

	c.notifier.ShowPaused(elapsed)
	c.saveWidget(false, time.Time{}, info)

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if _, err := c.svc.StopEntry(opCtx, info.OrganizationID, entryID, info.MemberID, start); err != nil {
		log.Debug("pause stop failed",
			log.Field("err", err),
		)
		c.mu.Lock()
		c.state = NotifTracking
		c.mu.Unlock()
		c.notifier.ShowError("Could not stop the running entry")
		c.notifier.ShowTracking(c.now().Sub(start), info.ProjectName, info.TaskName, info.Description)
		c.saveWidget(true, start, info)
		c.bus.Publish(Event{Kind: EventStateInvalidated})
		return err
	}
	c.clearSnapshot()
	if err := c.snapshots.SavePaused(store.PausedSession{
		OrganizationID: info.OrganizationID,
		MemberID:       info.MemberID,
		ProjectID:      info.ProjectID,
		TaskID:         info.TaskID,
		ProjectName:    info.ProjectName,
		TaskName:       info.TaskName,
		Description:    info.Description,
		Elapsed:        elapsed,
		PausedAt:       c.now(),
	}); err != nil {
		log.Debug("paused session save failed",
			log.Field("err", err),
		)
	}
	c.bus.Publish(Event{Kind: EventTrackingStopped, EntryID: entryID})
	return nil
}

// RestorePaused rebuilds the paused presentation from the durable record, so
// a resume can happen in a different process than the pause.
func (c *NotificationController) RestorePaused(ps store.PausedSession) {
	c.mu.Lock()
	c.state = NotifPaused
	c.pausedElapsed = ps.Elapsed
	c.info = TrackingInfo{
		OrganizationID: ps.OrganizationID,
		MemberID:       ps.MemberID,
		ProjectID:      ps.ProjectID,
		TaskID:         ps.TaskID,
		ProjectName:    ps.ProjectName,
		TaskName:       ps.TaskName,
		Description:    ps.Description,
	}
	elapsed := c.pausedElapsed
	c.mu.Unlock()

	c.notifier.ShowPaused(elapsed)
}

// Resume starts a fresh entry with the remembered context. The entry identity
// changes; the elapsed display restarts from the new epoch.
func (c *NotificationController) Resume(ctx context.Context) error {
	c.mu.Lock()
	if c.state != NotifPaused {
		c.mu.Unlock()
		return nil
	}
	info := c.info
	c.mu.Unlock()

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	entry, err := c.svc.StartEntry(opCtx, info.OrganizationID, info.MemberID, info.ProjectID, info.TaskID, info.Description)
	if err != nil {
		log.Debug("resume start failed",
			log.Field("err", err),
		)
		c.notifier.ShowError("Could not resume tracking")
		return err
	}

	c.mu.Lock()
	c.state = NotifTracking
	c.startTime = entry.Start
	c.entryID = entry.ID
	c.mu.Unlock()

	if err := c.snapshots.ClearPaused(); err != nil {
		log.Debug("paused session clear failed",
			log.Field("err", err),
		)
	}

	snap := store.ActiveEntrySnapshot{
		EntryID:        entry.ID,
		OrganizationID: entry.OrganizationID,
		UserID:         entry.UserID,
		Start:          entry.Start,
		ProjectID:      entry.ProjectID,
		TaskID:         entry.TaskID,
		Description:    entry.Description,
	}
	if err := c.snapshots.Save(snap); err != nil {
		log.Debug("snapshot save failed",
			log.Field("err", err),
		)
	}
	if err := c.snapshots.SaveStopFallback(store.StopFallback{
		EntryID:        entry.ID,
		OrganizationID: entry.OrganizationID,
		UserID:         entry.UserID,
		Start:          entry.Start,
	}); err != nil {
		log.Debug("stop fallback save failed",
			log.Field("err", err),
		)
	}

	c.notifier.ShowTracking(c.now().Sub(entry.Start), info.ProjectName, info.TaskName, info.Description)
	c.saveWidget(true, entry.Start, info)
	c.bus.Publish(Event{Kind: EventTrackingStarted, EntryID: entry.ID})
	return nil
}

// ApplyIdle ends the tracking presentation: idle or hidden per settings.
func (c *NotificationController) ApplyIdle() {
	c.mu.Lock()
	if c.settings.AlwaysShowNotification() {
		c.state = NotifIdle
	} else {
		c.state = NotifHidden
	}
	state := c.state
	info := c.info
	c.mu.Unlock()

	if state == NotifIdle {
		c.notifier.ShowIdle()
	} else {
		c.notifier.Hide()
	}
	c.saveWidget(false, time.Time{}, info)
}

// Hide tears the surface down entirely regardless of settings.
func (c *NotificationController) Hide() {
	c.mu.Lock()
	c.state = NotifHidden
	info := c.info
	c.mu.Unlock()

	c.notifier.Hide()
	c.saveWidget(false, time.Time{}, info)
}

// UpdateInfo replaces the displayed metadata in place, used when the active
// entry is edited elsewhere in the app.
func (c *NotificationController) UpdateInfo(projectID, taskID, projectName, taskName *string, description string) {
	c.mu.Lock()
	c.info.ProjectID = projectID
	c.info.TaskID = taskID
	c.info.ProjectName = projectName
	c.info.TaskName = taskName
	c.info.Description = description
	state := c.state
	start := c.startTime
	info := c.info
	c.mu.Unlock()

	if state == NotifTracking {
		c.notifier.ShowTracking(c.now().Sub(start), info.ProjectName, info.TaskName, info.Description)
		c.saveWidget(true, start, info)
	}
}

func (c *NotificationController) saveWidget(tracking bool, start time.Time, info TrackingInfo) {
	snap := WidgetSnapshot{Tracking: tracking}
	if tracking {
		snap.Start = start
		snap.ProjectName = info.ProjectName
		snap.TaskName = info.TaskName
		snap.Description = info.Description
	}
	if err := c.widget.Save(snap); err != nil {
		log.Debug("widget save failed",
			log.Field("err", err),
		)
	}
}

func (c *NotificationController) clearSnapshot() {
	if err := c.snapshots.Clear(); err != nil {
		log.Debug("snapshot clear failed",
			log.Field("err", err),
		)
	}
	if err := c.snapshots.ClearStopFallback(); err != nil {
		log.Debug("stop fallback clear failed",
			log.Field("err", err),
		)
	}
}
