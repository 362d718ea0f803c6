package surface

import (
	"time"

	"github.com/brimstone/logger"
)

var log = logger.New()

// Notifier is the presentation side of the persistent notification. Errors
// go through a separate channel from tracking state so a failed user action
// never masquerades as a state change.
type Notifier interface {
	ShowIdle()
	ShowTracking(elapsed time.Duration, projectName, taskName *string, description string)
	ShowPaused(elapsed time.Duration)
	Hide()
	ShowError(msg string)
}

// LogNotifier renders notifications as log lines. It is the default for
// headless runs and the stand-in used by tests.
type LogNotifier struct{}

func (LogNotifier) ShowIdle() {
	log.Info("notification idle")
}

func (LogNotifier) ShowTracking(elapsed time.Duration, projectName, taskName *string, description string) {
	log.Info("notification tracking",
		log.Field("elapsed", FormatElapsed(elapsed)),
		log.Field("project", strOr(projectName, "")),
		log.Field("task", strOr(taskName, "")),
		log.Field("description", description),
	)
}

func strOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func (LogNotifier) ShowPaused(elapsed time.Duration) {
	log.Info("notification paused",
		log.Field("elapsed", FormatElapsed(elapsed)),
	)
}

func (LogNotifier) Hide() {
	log.Info("notification hidden")
}

func (LogNotifier) ShowError(msg string) {
	log.Info("notification error",
		log.Field("msg", msg),
	)
}
