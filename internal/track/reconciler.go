// Package track computes the authoritative tracking state shared by every
// surface. There is no push channel from the server, so each surface runs
// reconciliation passes on its own triggers and converges through the durable
// stores.
package track

import (
	"context"
	"sync"
	"time"

	"github.com/Tricked-dev/SolidVerdant/internal/api"
	"github.com/Tricked-dev/SolidVerdant/internal/cache"
	"github.com/Tricked-dev/SolidVerdant/internal/store"
	"github.com/brimstone/logger"
)

var log = logger.New()

const (
	// FetchTimeout bounds the active-entry fetch of a full pass.
	FetchTimeout = 3 * time.Second
	// freshDebounce coalesces bursts of full passes from one surface; the OS
	// equivalent of a tile can fire listening callbacks in rapid succession.
	freshDebounce = 500 * time.Millisecond
)

// FetchPolicy selects how much work a reconciliation pass may do.
type FetchPolicy int

const (
	// FetchNone renders from the in-memory render cache, falling back to the
	// persisted snapshot. Used for the immediate re-render after a user action.
	FetchNone FetchPolicy = iota
	// FetchCached re-reads the persisted snapshot but stays off the network.
	FetchCached
	// FetchFresh additionally fetches the true active entry under a bounded
	// timeout to catch changes made from other surfaces.
	FetchFresh
)

// AuthState reports login state. Auth mechanics live elsewhere.
type AuthState interface {
	IsLoggedIn() bool
}

// Service is the slice of the remote API a pass may touch.
type Service interface {
	GetActiveEntry(ctx context.Context) (*api.TimeEntry, error)
	ListProjects(ctx context.Context, orgID string) ([]api.Project, error)
	ListTasks(ctx context.Context, orgID string) ([]api.Task, error)
}

// Reconciler runs reconciliation passes for one surface. Surfaces never share
// a Reconciler; they share the stores underneath it.
type Reconciler struct {
	auth       AuthState
	svc        Service
	optimistic *store.OptimisticStore
	snapshots  *store.SnapshotStore
	refdata    *cache.Cache

	mu         sync.Mutex
	busy       bool
	lastFresh  time.Time
	lastRender *TileState

	now          func() time.Time
	fetchTimeout time.Duration
}

func NewReconciler(auth AuthState, svc Service, optimistic *store.OptimisticStore, snapshots *store.SnapshotStore, refdata *cache.Cache) *Reconciler {
	return &Reconciler{
		auth:         auth,
		svc:          svc,
		optimistic:   optimistic,
		snapshots:    snapshots,
		refdata:      refdata,
		now:          time.Now,
		fetchTimeout: FetchTimeout,
	}
}

// WithClock replaces the time source, for tests.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Reconcile runs one pass and returns the state to render plus the side
// effects the caller must apply. A pass that arrives while another is still
// running is dropped, not queued: it gets a lightweight render and no effects.
func (r *Reconciler) Reconcile(ctx context.Context, policy FetchPolicy) (TileState, Effects) {
	r.mu.Lock()
	if r.busy {
		state := r.renderLocalLocked()
		r.mu.Unlock()
		return state, Effects{}
	}
	r.busy = true
	if policy == FetchFresh {
		if r.now().Sub(r.lastFresh) < freshDebounce {
			policy = FetchCached
		} else {
			r.lastFresh = r.now()
		}
	}
	r.mu.Unlock()

	state, effects := r.pass(ctx, policy)

	r.mu.Lock()
	r.busy = false
	r.lastRender = &state
	r.mu.Unlock()
	return state, effects
}

func (r *Reconciler) pass(ctx context.Context, policy FetchPolicy) (TileState, Effects) {
	if !r.auth.IsLoggedIn() {
		return NotLoggedIn(), Effects{}
	}

	// A live optimistic transition always wins; incorporating the fetch here
	// would make the UI flicker during the round trip it represents.
	if opt := r.optimistic.Read(); opt.Kind != store.OptimisticNone {
		switch opt.Kind {
		case store.OptimisticStarting:
			return Starting(opt.ProjectName, opt.TaskName), Effects{}
		case store.OptimisticStopping:
			return Stopping(), Effects{}
		}
	}

	persisted, err := r.snapshots.Load()
	if err != nil {
		log.Debug("snapshot load failed",
			log.Field("err", err),
		)
	}

	if policy == FetchNone {
		r.mu.Lock()
		if r.lastRender != nil {
			state := *r.lastRender
			r.mu.Unlock()
			return state, Effects{}
		}
		r.mu.Unlock()
		return r.renderPersisted(persisted), Effects{}
	}
	if policy == FetchCached {
		return r.renderPersisted(persisted), Effects{}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	entry, err := r.svc.GetActiveEntry(fetchCtx)
	cancel()
	if err != nil {
		// A failed fetch never regresses the UI below what we already knew.
		log.Debug("active entry fetch failed",
			log.Field("err", err),
		)
		return r.renderPersisted(persisted), Effects{}
	}

	switch {
	case entry != nil && (persisted == nil || persisted.EntryID != entry.ID):
		// New session, likely started from another surface or the web.
		snap := SnapshotFromEntry(entry)
		if err := r.snapshots.Save(snap); err != nil {
			log.Debug("snapshot save failed",
				log.Field("err", err),
			)
		}
		if err := r.snapshots.SaveStopFallback(store.StopFallback{
			EntryID:        snap.EntryID,
			OrganizationID: snap.OrganizationID,
			UserID:         snap.UserID,
			Start:          snap.Start,
		}); err != nil {
			log.Debug("stop fallback save failed",
				log.Field("err", err),
			)
		}
		projectName, taskName := r.resolveNamesFetching(ctx, snap)
		return Active(projectName, taskName, description(snap)), Effects{
			ShowTrackingNotification: true,
			WidgetDirty:              true,
		}

	case entry != nil:
		// Same entry as before; leave everything alone so notifications do
		// not churn.
		return r.renderPersisted(persisted), Effects{}

	case persisted != nil:
		// Session ended externally.
		if err := r.snapshots.Clear(); err != nil {
			log.Debug("snapshot clear failed",
				log.Field("err", err),
			)
		}
		if err := r.snapshots.ClearStopFallback(); err != nil {
			log.Debug("stop fallback clear failed",
				log.Field("err", err),
			)
		}
		return Inactive(), Effects{
			ApplyIdleNotification: true,
			WidgetDirty:           true,
		}

	default:
		return Inactive(), Effects{}
	}
}

func (r *Reconciler) renderLocalLocked() TileState {
	if r.lastRender != nil {
		return *r.lastRender
	}
	return Inactive()
}

// renderPersisted produces the degraded-but-instant render: ids resolve to
// names only if the cache happens to hold them.
func (r *Reconciler) renderPersisted(persisted *store.ActiveEntrySnapshot) TileState {
	if persisted == nil {
		return Inactive()
	}
	projectName, taskName := r.refdata.ResolveNames(persisted.OrganizationID, persisted.ProjectID, persisted.TaskID)
	return Active(projectName, taskName, description(*persisted))
}

// resolveNamesFetching resolves names for a freshly discovered entry,
// fetching reference data through to the cache when it is absent. Fetch
// errors degrade to nil names.
func (r *Reconciler) resolveNamesFetching(ctx context.Context, snap store.ActiveEntrySnapshot) (*string, *string) {
	if snap.ProjectID == nil && snap.TaskID == nil {
		return nil, nil
	}
	if _, _, ok := r.refdata.Get(snap.OrganizationID); !ok {
		fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
		defer cancel()
		projects, err := r.svc.ListProjects(fetchCtx, snap.OrganizationID)
		if err != nil {
			log.Debug("project fetch-through failed",
				log.Field("err", err),
			)
			return nil, nil
		}
		tasks, err := r.svc.ListTasks(fetchCtx, snap.OrganizationID)
		if err != nil {
			log.Debug("task fetch-through failed",
				log.Field("err", err),
			)
			return nil, nil
		}
		if err := r.refdata.Put(snap.OrganizationID, projects, tasks); err != nil {
			log.Debug("reference data save failed",
				log.Field("err", err),
			)
		}
	}
	return r.refdata.ResolveNames(snap.OrganizationID, snap.ProjectID, snap.TaskID)
}

func description(snap store.ActiveEntrySnapshot) *string {
	if snap.Description == "" {
		return nil
	}
	return &snap.Description
}
