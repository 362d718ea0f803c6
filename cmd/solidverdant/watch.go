package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Tricked-dev/SolidVerdant/internal/surface"
	"github.com/Tricked-dev/SolidVerdant/internal/tui"
	"github.com/Tricked-dev/SolidVerdant/internal/web"
)

func init() {
	rootCmd.AddCommand(watchCmd, serveCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard with start/stop/pause/resume hotkeys",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		a.restoreNotification()
		if a.notif.State() != surface.NotifTracking {
			restorePaused(a)
		}
		model := tui.NewModel(a.tile, a.notif, a.widget, a.bus, a.settings.PollInterval())
		_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
		return err
	}),
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only widget page over HTTP",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		// Refresh once so the page starts from converged state.
		a.restoreNotification()
		a.tile.Refresh(ctx)
		fmt.Printf("Widget page on http://localhost:%s\n", a.cfg.Port)
		return web.NewServer(a.widget).ListenAndServe(a.cfg.Port)
	}),
}
