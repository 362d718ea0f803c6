package surface

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/Tricked-dev/SolidVerdant/internal/api"
	"github.com/Tricked-dev/SolidVerdant/internal/cache"
	"github.com/Tricked-dev/SolidVerdant/internal/store"
	"github.com/Tricked-dev/SolidVerdant/internal/track"
)

var errNoMembership = errors.New("no organization membership available")

// clickFetchTimeout bounds the active-entry probe a click performs before
// deciding between the stop and start paths.
const clickFetchTimeout = 3 * time.Second

// ClickOutcome tells the surface what a primary-action tap resolved to.
type ClickOutcome int

const (
	// ClickIgnored means another click was still in flight.
	ClickIgnored ClickOutcome = iota
	// ClickNotLoggedIn means no session; the surface shows the login hint.
	ClickNotLoggedIn
	// ClickStopped means the click stopped a running entry.
	ClickStopped
	// ClickOpenSelection means nothing was running; the surface should open
	// project selection to start a new entry.
	ClickOpenSelection
)

// TileService is the slice of the remote API the tile needs.
type TileService interface {
	GetActiveEntry(ctx context.Context) (*api.TimeEntry, error)
	StartEntry(ctx context.Context, orgID, memberID string, projectID, taskID *string, description string) (*api.TimeEntry, error)
	StopEntry(ctx context.Context, orgID, entryID, memberID string, start time.Time) (*api.TimeEntry, error)
	GetMemberships(ctx context.Context) ([]api.Membership, error)
}

// TileController owns the quick-toggle surface. User actions originate
// optimistic transitions here; a single in-flight lock makes rapid repeated
// taps no-ops instead of duplicate server operations. Failed attempts are
// terminal and reported; the controller never retries on its own.
type TileController struct {
	auth     track.AuthState
	svc      TileService
	rec      *track.Reconciler
	opt      *store.OptimisticStore
	snaps    *store.SnapshotStore
	settings *store.SettingsStore
	refdata  *cache.Cache
	notif    *NotificationController
	widget   *WidgetStore
	bus      *Bus
	notifier Notifier

	render func(track.TileState)
	busy   atomic.Bool
}

func NewTileController(auth track.AuthState, svc TileService, rec *track.Reconciler, opt *store.OptimisticStore, snaps *store.SnapshotStore, settings *store.SettingsStore, refdata *cache.Cache, notif *NotificationController, widget *WidgetStore, bus *Bus, notifier Notifier) *TileController {
	return &TileController{
		auth:     auth,
		svc:      svc,
		rec:      rec,
		opt:      opt,
		snaps:    snaps,
		settings: settings,
		refdata:  refdata,
		notif:    notif,
		widget:   widget,
		bus:      bus,
		notifier: notifier,
	}
}

// SetRenderer registers the surface's render callback.
func (c *TileController) SetRenderer(render func(track.TileState)) {
	c.render = render
}

func (c *TileController) renderNow(ctx context.Context, policy track.FetchPolicy) track.TileState {
	state, effects := c.rec.Reconcile(ctx, policy)
	c.applyEffects(state, effects)
	return state
}

// applyEffects converges the other surfaces this controller owns after a
// reconciliation pass.
func (c *TileController) applyEffects(state track.TileState, effects track.Effects) {
	if effects.ShowTrackingNotification {
		if snap, err := c.snaps.Load(); err == nil && snap != nil {
			c.notif.Start(snap.Start, snap.EntryID, TrackingInfo{
				OrganizationID: snap.OrganizationID,
				MemberID:       c.settings.MemberID(),
				ProjectID:      snap.ProjectID,
				TaskID:         snap.TaskID,
				ProjectName:    state.ProjectName,
				TaskName:       state.TaskName,
				Description:    snap.Description,
			})
		}
	}
	if effects.ApplyIdleNotification {
		c.notif.ApplyIdle()
	}
	if effects.WidgetDirty {
		c.saveWidget(state)
	}
	if c.render != nil {
		c.render(state)
	}
}

// saveWidget rewrites the widget snapshot from the converged state, so widget
// renderers pick up entries started or stopped from other surfaces.
func (c *TileController) saveWidget(state track.TileState) {
	snap, err := c.snaps.Load()
	if err != nil {
		log.Debug("snapshot load failed",
			log.Field("err", err),
		)
		return
	}
	ws := WidgetSnapshot{}
	if state.Kind == track.StateActive && snap != nil {
		ws = WidgetSnapshot{
			Tracking:    true,
			Start:       snap.Start,
			ProjectName: state.ProjectName,
			TaskName:    state.TaskName,
			Description: snap.Description,
		}
	}
	if err := c.widget.Save(ws); err != nil {
		log.Debug("widget save failed",
			log.Field("err", err),
		)
	}
}

// Refresh is the surface-became-visible entry point: a full pass with a fresh
// fetch to catch changes made from other surfaces, including the web app.
func (c *TileController) Refresh(ctx context.Context) track.TileState {
	return c.renderNow(ctx, track.FetchFresh)
}

// Restore is the boot entry point: render from durable state only, so the
// surface shows something sensible before any network is attempted.
func (c *TileController) Restore(ctx context.Context) track.TileState {
	return c.renderNow(ctx, track.FetchCached)
}

// OnClick handles the primary action. Tracking something: stop it. Tracking
// nothing: hand off to project selection. When the probe fails the durable
// stop-fallback record still allows stopping while offline.
func (c *TileController) OnClick(ctx context.Context) (ClickOutcome, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return ClickIgnored, nil
	}
	defer c.busy.Store(false)

	if !c.auth.IsLoggedIn() {
		if c.render != nil {
			c.render(track.NotLoggedIn())
		}
		return ClickNotLoggedIn, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, clickFetchTimeout)
	entry, err := c.svc.GetActiveEntry(probeCtx)
	cancel()

	switch {
	case err == nil && entry != nil:
		return ClickStopped, c.stopLocked(ctx, entry.OrganizationID, entry.ID, entry.Start)
	case err != nil:
		fb, fbErr := c.snaps.LoadStopFallback()
		if fbErr == nil && fb != nil {
			log.Debug("probe failed, stopping via cached entry",
				log.Field("entry", fb.EntryID),
			)
			return ClickStopped, c.stopLocked(ctx, fb.OrganizationID, fb.EntryID, fb.Start)
		}
		return ClickOpenSelection, nil
	default:
		return ClickOpenSelection, nil
	}
}

// OnStartTrackingRequested begins tracking with the chosen project and task.
func (c *TileController) OnStartTrackingRequested(ctx context.Context, projectID, taskID *string, description string) error {
	if !c.busy.CompareAndSwap(false, true) {
		return nil
	}
	defer c.busy.Store(false)
	return c.startLocked(ctx, projectID, taskID, description)
}

// OnStopTrackingRequested stops whatever the durable state says is running.
func (c *TileController) OnStopTrackingRequested(ctx context.Context) error {
	if !c.busy.CompareAndSwap(false, true) {
		return nil
	}
	defer c.busy.Store(false)

	if snap, err := c.snaps.Load(); err == nil && snap != nil {
		return c.stopLocked(ctx, snap.OrganizationID, snap.EntryID, snap.Start)
	}
	if fb, err := c.snaps.LoadStopFallback(); err == nil && fb != nil {
		return c.stopLocked(ctx, fb.OrganizationID, fb.EntryID, fb.Start)
	}
	return nil
}

func (c *TileController) startLocked(ctx context.Context, projectID, taskID *string, description string) error {
	orgID, memberID, err := c.ensureMembership(ctx)
	if err != nil {
		c.notifier.ShowError("Could not start tracking")
		c.renderNow(ctx, track.FetchCached)
		return err
	}

	projectName, taskName := c.refdata.ResolveNames(orgID, projectID, taskID)
	if err := c.opt.SetStarting(projectName, taskName); err != nil {
		log.Debug("optimistic write failed",
			log.Field("err", err),
		)
	}
	c.renderNow(ctx, track.FetchNone)

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	entry, err := c.svc.StartEntry(opCtx, orgID, memberID, projectID, taskID, description)
	cancel()
	if err != nil {
		// FetchCached here, not FetchNone: the render cache still holds the
		// optimistic Starting state we are rolling back.
		c.clearOptimistic()
		c.notifier.ShowError("Could not start tracking")
		c.renderNow(ctx, track.FetchCached)
		return err
	}

	snap := track.SnapshotFromEntry(entry)
	if err := c.snaps.Save(snap); err != nil {
		log.Debug("snapshot save failed",
			log.Field("err", err),
		)
	}
	if err := c.snaps.SaveStopFallback(store.StopFallback{
		EntryID:        entry.ID,
		OrganizationID: entry.OrganizationID,
		UserID:         entry.UserID,
		Start:          entry.Start,
	}); err != nil {
		log.Debug("stop fallback save failed",
			log.Field("err", err),
		)
	}
	c.clearOptimistic()

	c.notif.Start(entry.Start, entry.ID, TrackingInfo{
		OrganizationID: entry.OrganizationID,
		MemberID:       memberID,
		ProjectID:      projectID,
		TaskID:         taskID,
		ProjectName:    projectName,
		TaskName:       taskName,
		Description:    description,
	})
	c.renderNow(ctx, track.FetchCached)
	return nil
}

func (c *TileController) stopLocked(ctx context.Context, orgID, entryID string, start time.Time) error {
	if err := c.opt.SetStopping(); err != nil {
		log.Debug("optimistic write failed",
			log.Field("err", err),
		)
	}
	c.renderNow(ctx, track.FetchNone)

	memberID := c.settings.MemberID()
	if memberID == "" {
		var err error
		_, memberID, err = c.ensureMembership(ctx)
		if err != nil {
			log.Debug("membership resolution failed",
				log.Field("err", err),
			)
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	_, err := c.svc.StopEntry(opCtx, orgID, entryID, memberID, start)
	cancel()

	// The cached entry is cleared either way: on failure it may already be
	// stale (stopped from another surface) and the next fresh pass will
	// rediscover any entry that is really still running.
	if clearErr := c.snaps.Clear(); clearErr != nil {
		log.Debug("snapshot clear failed",
			log.Field("err", clearErr),
		)
	}
	if clearErr := c.snaps.ClearStopFallback(); clearErr != nil {
		log.Debug("stop fallback clear failed",
			log.Field("err", clearErr),
		)
	}
	c.clearOptimistic()

	if err != nil {
		c.notifier.ShowError("Could not stop tracking")
		c.renderNow(ctx, track.FetchCached)
		return err
	}

	c.notif.ApplyIdle()
	c.bus.Publish(Event{Kind: EventTrackingStopped, EntryID: entryID})
	c.renderNow(ctx, track.FetchCached)
	return nil
}

func (c *TileController) clearOptimistic() {
	if err := c.opt.Clear(); err != nil {
		log.Debug("optimistic clear failed",
			log.Field("err", err),
		)
	}
}

// ensureMembership resolves and persists the organization and member used for
// new entries, fetching memberships once when settings are incomplete.
func (c *TileController) ensureMembership(ctx context.Context) (orgID, memberID string, err error) {
	orgID = c.settings.OrganizationID()
	memberID = c.settings.MemberID()
	if orgID != "" && memberID != "" {
		return orgID, memberID, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	memberships, err := c.svc.GetMemberships(opCtx)
	if err != nil {
		return "", "", err
	}
	if len(memberships) == 0 {
		return "", "", errNoMembership
	}

	chosen := memberships[0]
	if orgID != "" {
		for _, m := range memberships {
			if m.Organization.ID == orgID {
				chosen = m
				break
			}
		}
	}
	orgID = chosen.Organization.ID
	memberID = chosen.ID
	if err := c.settings.SetOrganizationID(orgID); err != nil {
		log.Debug("settings write failed",
			log.Field("err", err),
		)
	}
	if err := c.settings.SetMemberID(memberID); err != nil {
		log.Debug("settings write failed",
			log.Field("err", err),
		)
	}
	return orgID, memberID, nil
}
