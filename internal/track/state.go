package track

import (
	"github.com/Tricked-dev/SolidVerdant/internal/api"
	"github.com/Tricked-dev/SolidVerdant/internal/store"
)

// StateKind enumerates everything a surface can render. Switches over it are
// exhaustive; there is no stringly-typed dispatch.
type StateKind int

const (
	StateNotLoggedIn StateKind = iota
	StateInactive
	StateActive
	StateStarting
	StateStopping
)

func (k StateKind) String() string {
	switch k {
	case StateNotLoggedIn:
		return "not_logged_in"
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	case StateStarting:
		return "starting"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// TileState is the single authoritative render decision for a surface.
type TileState struct {
	Kind        StateKind
	ProjectName *string
	TaskName    *string
	Description *string
}

func NotLoggedIn() TileState { return TileState{Kind: StateNotLoggedIn} }
func Inactive() TileState    { return TileState{Kind: StateInactive} }

func Active(projectName, taskName, description *string) TileState {
	return TileState{Kind: StateActive, ProjectName: projectName, TaskName: taskName, Description: description}
}

func Starting(projectName, taskName *string) TileState {
	return TileState{Kind: StateStarting, ProjectName: projectName, TaskName: taskName}
}

func Stopping() TileState { return TileState{Kind: StateStopping} }

// Effects are the side effects a reconciliation pass asks its caller to
// apply. The reconciler itself only touches the persisted snapshot.
type Effects struct {
	// ShowTrackingNotification fires when a running entry was discovered
	// externally (started from the web or another device).
	ShowTrackingNotification bool
	// ApplyIdleNotification fires when tracking ended externally; the
	// notification goes idle or hidden per settings.
	ApplyIdleNotification bool
	// WidgetDirty requests a widget snapshot refresh.
	WidgetDirty bool
}

// SnapshotFromEntry converts a fetched entry into the persisted form.
func SnapshotFromEntry(entry *api.TimeEntry) store.ActiveEntrySnapshot {
	return store.ActiveEntrySnapshot{
		EntryID:        entry.ID,
		OrganizationID: entry.OrganizationID,
		UserID:         entry.UserID,
		Start:          entry.Start,
		ProjectID:      entry.ProjectID,
		TaskID:         entry.TaskID,
		Description:    entry.Description,
	}
}
