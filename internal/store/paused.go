package store

import "time"

const keyPaused = "paused"

// PausedSession is the remembered context of a paused entry. Pause is not a
// server concept: the entry was stopped, and this record is what resume needs
// to start its successor.
type PausedSession struct {
	OrganizationID string        `json:"organization_id"`
	MemberID       string        `json:"member_id"`
	ProjectID      *string       `json:"project_id,omitempty"`
	TaskID         *string       `json:"task_id,omitempty"`
	ProjectName    *string       `json:"project_name,omitempty"`
	TaskName       *string       `json:"task_name,omitempty"`
	Description    string        `json:"description,omitempty"`
	Elapsed        time.Duration `json:"elapsed"`
	PausedAt       time.Time     `json:"paused_at"`
}

func (s *SnapshotStore) SavePaused(ps PausedSession) error {
	return s.kv.SetJSON(PartitionTileState, keyPaused, ps)
}

func (s *SnapshotStore) LoadPaused() (*PausedSession, error) {
	var ps PausedSession
	ok, err := s.kv.GetJSON(PartitionTileState, keyPaused, &ps)
	if err != nil || !ok {
		return nil, err
	}
	return &ps, nil
}

func (s *SnapshotStore) ClearPaused() error {
	return s.kv.Remove(PartitionTileState, keyPaused)
}
