package store

import (
	"time"

	"github.com/google/uuid"
)

// OptimisticTimeout bounds how long a pending transition may dominate the
// rendered state. If the process that initiated it died mid-flight, the next
// read past this window discards the record and surfaces fall back to the
// persisted snapshot.
const OptimisticTimeout = 30 * time.Second

type OptimisticKind int

const (
	OptimisticNone OptimisticKind = iota
	OptimisticStarting
	OptimisticStopping
)

func (k OptimisticKind) String() string {
	switch k {
	case OptimisticStarting:
		return "starting"
	case OptimisticStopping:
		return "stopping"
	default:
		return "none"
	}
}

// OptimisticState is a user-intended transition not yet confirmed by the
// server, written the instant a user action is accepted.
type OptimisticState struct {
	ID          string         `json:"id"`
	Kind        OptimisticKind `json:"kind"`
	ProjectName *string        `json:"project_name,omitempty"`
	TaskName    *string        `json:"task_name,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// OptimisticStore persists the pending transition. It never touches the
// network; write failures are swallowed by callers per the degradation
// policy (worst case the UI is briefly stale).
type OptimisticStore struct {
	kv      KV
	now     func() time.Time
	timeout time.Duration
}

func NewOptimisticStore(kv KV) *OptimisticStore {
	return &OptimisticStore{kv: kv, now: time.Now, timeout: OptimisticTimeout}
}

// WithClock replaces the time source, for tests.
func (s *OptimisticStore) WithClock(now func() time.Time) *OptimisticStore {
	s.now = now
	return s
}

func (s *OptimisticStore) SetStarting(projectName, taskName *string) error {
	return s.kv.SetJSON(PartitionTileState, keyOptimistic, OptimisticState{
		ID:          uuid.NewString(),
		Kind:        OptimisticStarting,
		ProjectName: projectName,
		TaskName:    taskName,
		CreatedAt:   s.now(),
	})
}

func (s *OptimisticStore) SetStopping() error {
	return s.kv.SetJSON(PartitionTileState, keyOptimistic, OptimisticState{
		ID:        uuid.NewString(),
		Kind:      OptimisticStopping,
		CreatedAt: s.now(),
	})
}

func (s *OptimisticStore) Clear() error {
	return s.kv.Remove(PartitionTileState, keyOptimistic)
}

// Read returns the pending transition, or a None state when no record exists
// or the record is older than the timeout. A stale record is cleared as a
// side effect so later reads are cheap.
func (s *OptimisticStore) Read() OptimisticState {
	none := OptimisticState{Kind: OptimisticNone}
	var state OptimisticState
	ok, err := s.kv.GetJSON(PartitionTileState, keyOptimistic, &state)
	if err != nil {
		log.Debug("optimistic read failed",
			log.Field("err", err.Error()),
		)
		return none
	}
	if !ok {
		return none
	}
	if s.now().Sub(state.CreatedAt) > s.timeout {
		if err := s.Clear(); err != nil {
			log.Debug("optimistic stale clear failed",
				log.Field("err", err.Error()),
			)
		}
		return none
	}
	return state
}
