package surface

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatElapsed(0))
	assert.Equal(t, "00:02:05", FormatElapsed(125*time.Second))
	assert.Equal(t, "01:00:00", FormatElapsed(time.Hour))
	assert.Equal(t, "27:15:09", FormatElapsed(27*time.Hour+15*time.Minute+9*time.Second))
	assert.Equal(t, "00:00:00", FormatElapsed(-time.Second))
}

func TestRenderWidget(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 2, 5, 0, time.UTC)
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	project := "Website"
	task := "Homepage"

	assert.Equal(t, "Not tracking", RenderWidget(nil, now))
	assert.Equal(t, "Not tracking", RenderWidget(&WidgetSnapshot{}, now))

	snap := &WidgetSnapshot{Tracking: true, Start: start}
	assert.Equal(t, "00:02:05", RenderWidget(snap, now))

	snap.ProjectName = &project
	snap.Description = "homepage copy"
	assert.Equal(t, "00:02:05 Website - homepage copy", RenderWidget(snap, now))

	snap.TaskName = &task
	assert.Equal(t, "00:02:05 Website / Homepage - homepage copy", RenderWidget(snap, now))
}
