package surface

import (
	"fmt"
	"time"

	"github.com/Tricked-dev/SolidVerdant/internal/store"
)

const keyWidgetSnapshot = "snapshot"

// WidgetSnapshot is the widget's entire world: a pure read-only renderer
// draws it and nothing else. It is refreshed by the notification controller
// on every visibility transition and by the widget's own coarse poll.
type WidgetSnapshot struct {
	Tracking    bool      `json:"tracking"`
	Start       time.Time `json:"start,omitempty"`
	ProjectName *string   `json:"project_name,omitempty"`
	TaskName    *string   `json:"task_name,omitempty"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type WidgetStore struct {
	kv  store.KV
	now func() time.Time
}

func NewWidgetStore(kv store.KV) *WidgetStore {
	return &WidgetStore{kv: kv, now: time.Now}
}

func (w *WidgetStore) Save(snap WidgetSnapshot) error {
	snap.UpdatedAt = w.now()
	return w.kv.SetJSON(store.PartitionWidget, keyWidgetSnapshot, snap)
}

func (w *WidgetStore) Load() (*WidgetSnapshot, error) {
	var snap WidgetSnapshot
	ok, err := w.kv.GetJSON(store.PartitionWidget, keyWidgetSnapshot, &snap)
	if err != nil || !ok {
		return nil, err
	}
	return &snap, nil
}

// FormatElapsed renders a live duration as HH:MM:SS.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%02d:%02d:%02d", h, m, d/time.Second)
}

// RenderWidget produces the widget's one-line text form, shared by the status
// command and the HTTP status page.
func RenderWidget(snap *WidgetSnapshot, now time.Time) string {
	if snap == nil || !snap.Tracking {
		return "Not tracking"
	}
	line := FormatElapsed(now.Sub(snap.Start))
	if snap.ProjectName != nil {
		line += " " + *snap.ProjectName
		if snap.TaskName != nil {
			line += " / " + *snap.TaskName
		}
	}
	if snap.Description != "" {
		line += " - " + snap.Description
	}
	return line
}
