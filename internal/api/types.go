package api

import "time"

type TimeEntry struct {
	ID             string     `json:"id"`
	Start          time.Time  `json:"start"`
	End            *time.Time `json:"end"`
	Duration       *int64     `json:"duration"`
	Description    string     `json:"description"`
	TaskID         *string    `json:"task_id"`
	ProjectID      *string    `json:"project_id"`
	OrganizationID string     `json:"organization_id"`
	UserID         string     `json:"user_id"`
	Tags           []string   `json:"tags"`
	Billable       bool       `json:"billable"`
}

type TimeEntryResponse struct {
	Data TimeEntry `json:"data"`
}

type TimeEntriesResponse struct {
	Data []TimeEntry `json:"data"`
}

type Project struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	ClientID   *string `json:"client_id"`
	IsArchived bool    `json:"is_archived"`
	IsBillable bool    `json:"is_billable"`
}

type ProjectsResponse struct {
	Data []Project `json:"data"`
}

type Task struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProjectID string `json:"project_id"`
	IsDone    bool   `json:"is_done"`
}

type TasksResponse struct {
	Data []Task `json:"data"`
}

type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TagsResponse struct {
	Data []Tag `json:"data"`
}

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Timezone string `json:"timezone"`
}

type UserResponse struct {
	Data User `json:"data"`
}

type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Membership struct {
	ID           string       `json:"id"`
	Organization Organization `json:"organization"`
	Role         string       `json:"role"`
}

type MembershipsResponse struct {
	Data []Membership `json:"data"`
}

// StartEntryRequest is the body for creating a running time entry.
type StartEntryRequest struct {
	MemberID    string    `json:"member_id"`
	ProjectID   *string   `json:"project_id,omitempty"`
	TaskID      *string   `json:"task_id,omitempty"`
	Start       time.Time `json:"start"`
	Billable    bool      `json:"billable"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
}

// UpdateEntryRequest is the body for updating (including stopping) an entry.
type UpdateEntryRequest struct {
	MemberID    string     `json:"member_id"`
	ProjectID   *string    `json:"project_id,omitempty"`
	TaskID      *string    `json:"task_id,omitempty"`
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end"`
	Billable    bool       `json:"billable"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
}
