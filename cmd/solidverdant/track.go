package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tricked-dev/SolidVerdant/internal/api"
	"github.com/Tricked-dev/SolidVerdant/internal/surface"
	"github.com/Tricked-dev/SolidVerdant/internal/track"
)

var (
	startProject string
	startTask    string
	statusFresh  bool
)

func init() {
	startCmd.Flags().StringVarP(&startProject, "project", "p", "", "project name or id")
	startCmd.Flags().StringVarP(&startTask, "task", "t", "", "task name or id")
	statusCmd.Flags().BoolVar(&statusFresh, "fresh", false, "fetch the active entry from the server")
	rootCmd.AddCommand(statusCmd, toggleCmd, startCmd, stopCmd, pauseCmd, resumeCmd)
}

func printState(state track.TileState, a *app) {
	switch state.Kind {
	case track.StateNotLoggedIn:
		fmt.Println("Not logged in - run 'solidverdant login'")
	case track.StateInactive:
		fmt.Println("Not tracking")
	case track.StateStarting:
		fmt.Println("Starting...")
	case track.StateStopping:
		fmt.Println("Stopping...")
	case track.StateActive:
		snap, _ := a.widget.Load()
		fmt.Println(surface.RenderWidget(snap, time.Now()))
	}
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current tracking state",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		a.restoreNotification()
		var state track.TileState
		if statusFresh {
			state = a.tile.Refresh(ctx)
		} else {
			state = a.tile.Restore(ctx)
		}
		printState(state, a)
		return nil
	}),
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Primary action: stop the running entry, or pick what to start",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		a.restoreNotification()
		outcome, err := a.tile.OnClick(ctx)
		if err != nil {
			return err
		}
		switch outcome {
		case surface.ClickNotLoggedIn:
			fmt.Println("Not logged in - run 'solidverdant login'")
		case surface.ClickStopped:
			fmt.Println("Stopped")
		case surface.ClickOpenSelection:
			if err := printSelection(ctx, a); err != nil {
				return err
			}
		case surface.ClickIgnored:
		}
		return nil
	}),
}

// printSelection is the project-selection surface: list what can be started.
func printSelection(ctx context.Context, a *app) error {
	orgID := a.settings.OrganizationID()
	projects, tasks, err := ensureReferenceData(ctx, a, orgID)
	if err != nil {
		fmt.Println("Nothing is running. Start with: solidverdant start [description]")
		return nil
	}
	fmt.Println("Nothing is running. Start with: solidverdant start -p <project> [description]")
	for _, p := range projects {
		if p.IsArchived {
			continue
		}
		fmt.Printf("  %s\n", p.Name)
		for _, t := range tasks {
			if t.ProjectID == p.ID && !t.IsDone {
				fmt.Printf("    - %s\n", t.Name)
			}
		}
	}
	return nil
}

var startCmd = &cobra.Command{
	Use:   "start [description]",
	Short: "Start tracking a new entry",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		description := strings.Join(args, " ")
		projectID, taskID, err := resolveSelection(ctx, a, startProject, startTask)
		if err != nil {
			return err
		}
		if err := a.tile.OnStartTrackingRequested(ctx, projectID, taskID, description); err != nil {
			return err
		}
		printState(a.tile.Restore(ctx), a)
		return nil
	}),
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running entry",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		a.restoreNotification()
		if err := a.tile.OnStopTrackingRequested(ctx); err != nil {
			return err
		}
		printState(a.tile.Restore(ctx), a)
		return nil
	}),
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause tracking (stops the entry, remembers it for resume)",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		a.restoreNotification()
		if a.notif.State() != surface.NotifTracking {
			fmt.Println("Nothing to pause")
			return nil
		}
		if err := a.notif.Pause(ctx); err != nil {
			return err
		}
		fmt.Printf("Paused at %s\n", surface.FormatElapsed(a.notif.Elapsed()))
		return nil
	}),
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the paused entry as a fresh one",
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		// A fresh process has no paused state in memory; rebuild it from the
		// durable paused-session record if the last action was a pause.
		if a.notif.State() != surface.NotifPaused {
			if !restorePaused(a) {
				fmt.Println("Nothing to resume")
				return nil
			}
		}
		if err := a.notif.Resume(ctx); err != nil {
			return err
		}
		printState(a.tile.Restore(ctx), a)
		return nil
	}),
}

// resolveSelection turns project/task names or ids into ids, refreshing the
// selection cache through the network when it aged out.
func resolveSelection(ctx context.Context, a *app, project, task string) (projectID, taskID *string, err error) {
	if project == "" && task == "" {
		return nil, nil, nil
	}
	orgID := a.settings.OrganizationID()
	projects, tasks, err := ensureReferenceData(ctx, a, orgID)
	if err != nil {
		return nil, nil, err
	}
	if project != "" {
		for i := range projects {
			if strings.EqualFold(projects[i].Name, project) || projects[i].ID == project {
				projectID = &projects[i].ID
				break
			}
		}
		if projectID == nil {
			return nil, nil, fmt.Errorf("unknown project %q", project)
		}
	}
	if task != "" {
		for i := range tasks {
			if projectID != nil && tasks[i].ProjectID != *projectID {
				continue
			}
			if strings.EqualFold(tasks[i].Name, task) || tasks[i].ID == task {
				taskID = &tasks[i].ID
				if projectID == nil {
					taskProject := tasks[i].ProjectID
					projectID = &taskProject
				}
				break
			}
		}
		if taskID == nil {
			return nil, nil, fmt.Errorf("unknown task %q", task)
		}
	}
	return projectID, taskID, nil
}

func ensureReferenceData(ctx context.Context, a *app, orgID string) ([]api.Project, []api.Task, error) {
	if orgID == "" {
		memberships, err := a.client.GetMemberships(ctx)
		if err != nil || len(memberships) == 0 {
			return nil, nil, fmt.Errorf("no organization selected")
		}
		orgID = memberships[0].Organization.ID
		if err := a.settings.SetOrganizationID(orgID); err != nil {
			log.Debug("settings write failed",
				log.Field("err", err),
			)
		}
	}
	if projects, tasks, ok := a.selection.Get(orgID); ok {
		return projects, tasks, nil
	}
	fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	projects, err := a.client.ListProjects(fetchCtx, orgID)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := a.client.ListTasks(fetchCtx, orgID)
	if err != nil {
		return nil, nil, err
	}
	if err := a.selection.Put(orgID, projects, tasks); err != nil {
		log.Debug("reference data save failed",
			log.Field("err", err),
		)
	}
	return projects, tasks, nil
}

// restorePaused rebuilds paused controller state after a process restart from
// the durable paused-session record.
func restorePaused(a *app) bool {
	ps, err := a.snaps.LoadPaused()
	if err != nil || ps == nil {
		return false
	}
	a.notif.RestorePaused(*ps)
	return true
}
