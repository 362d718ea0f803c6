package store

import (
	"time"

	"github.com/brimstone/logger"
)

var log = logger.New()

const (
	keySnapshot     = "active_entry"
	keyStopFallback = "stop_fallback"
	keyOptimistic   = "optimistic"
)

// ActiveEntrySnapshot is the last observed remote active entry, persisted so
// a surface restarted by the OS can render without a network round trip.
// A missing snapshot means "not tracking".
type ActiveEntrySnapshot struct {
	EntryID        string    `json:"entry_id"`
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Start          time.Time `json:"start"`
	ProjectID      *string   `json:"project_id,omitempty"`
	TaskID         *string   `json:"task_id,omitempty"`
	Description    string    `json:"description,omitempty"`
}

// StopFallback carries just enough identifiers to stop the current entry
// while offline, cached alongside the snapshot whenever a start succeeds.
type StopFallback struct {
	EntryID        string    `json:"entry_id"`
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Start          time.Time `json:"start"`
}

// SnapshotStore owns the tilestate partition keys for the active entry.
// It is the single writer; every surface reads it.
type SnapshotStore struct {
	kv KV
}

func NewSnapshotStore(kv KV) *SnapshotStore {
	return &SnapshotStore{kv: kv}
}

func (s *SnapshotStore) Save(snap ActiveEntrySnapshot) error {
	return s.kv.SetJSON(PartitionTileState, keySnapshot, snap)
}

// Load returns nil when no entry is being tracked.
func (s *SnapshotStore) Load() (*ActiveEntrySnapshot, error) {
	var snap ActiveEntrySnapshot
	ok, err := s.kv.GetJSON(PartitionTileState, keySnapshot, &snap)
	if err != nil || !ok {
		return nil, err
	}
	return &snap, nil
}

func (s *SnapshotStore) Clear() error {
	return s.kv.Remove(PartitionTileState, keySnapshot)
}

func (s *SnapshotStore) SaveStopFallback(fb StopFallback) error {
	return s.kv.SetJSON(PartitionTileState, keyStopFallback, fb)
}

func (s *SnapshotStore) LoadStopFallback() (*StopFallback, error) {
	var fb StopFallback
	ok, err := s.kv.GetJSON(PartitionTileState, keyStopFallback, &fb)
	if err != nil || !ok {
		return nil, err
	}
	return &fb, nil
}

func (s *SnapshotStore) ClearStopFallback() error {
	return s.kv.Remove(PartitionTileState, keyStopFallback)
}
