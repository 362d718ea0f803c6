// Package tui is the in-app surface: a terminal dashboard that polls for the
// authoritative state and originates start/stop/pause/resume actions.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Tricked-dev/SolidVerdant/internal/surface"
	"github.com/Tricked-dev/SolidVerdant/internal/track"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2E7D32")).
			Padding(0, 1)

	trackingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F7DC6F")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2E7D32")).
			Padding(1, 2).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

type tickMsg time.Time

type pollMsg time.Time

type busMsg surface.Event

type stateMsg struct {
	state track.TileState
}

type actionDoneMsg struct {
	outcome surface.ClickOutcome
	err     error
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func pollCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

type Model struct {
	tile   *surface.TileController
	notif  *surface.NotificationController
	widget *surface.WidgetStore
	bus    *surface.Bus
	sub    *surface.Subscription
	poll   time.Duration

	state  track.TileState
	snap   *surface.WidgetSnapshot
	status string
	width  int
	height int
}

func NewModel(tile *surface.TileController, notif *surface.NotificationController, widget *surface.WidgetStore, bus *surface.Bus, poll time.Duration) Model {
	return Model{
		tile:   tile,
		notif:  notif,
		widget: widget,
		bus:    bus,
		sub:    bus.Subscribe(),
		poll:   poll,
		state:  track.Inactive(),
	}
}

func (m Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return stateMsg{state: m.tile.Refresh(ctx)}
	}
}

func (m Model) clickCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		outcome, err := m.tile.OnClick(ctx)
		return actionDoneMsg{outcome: outcome, err: err}
	}
}

func (m Model) pauseCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return actionDoneMsg{err: m.notif.Pause(ctx)}
	}
}

func (m Model) resumeCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return actionDoneMsg{err: m.notif.Resume(ctx)}
	}
}

// waitBusCmd blocks on the next broadcast from another surface; each received
// event re-arms the wait.
func (m Model) waitBusCmd() tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-m.sub.C
		if !ok {
			return nil
		}
		return busMsg(evt)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), pollCmd(m.poll), m.refreshCmd(), m.waitBusCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.bus.Unsubscribe(m.sub)
			return m, tea.Quit
		case "s":
			m.status = "working..."
			return m, m.clickCmd()
		case "p":
			m.status = "pausing..."
			return m, m.pauseCmd()
		case "r":
			m.status = "resuming..."
			return m, m.resumeCmd()
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.snap, _ = m.widget.Load()
		return m, tickCmd()
	case pollMsg:
		return m, tea.Batch(pollCmd(m.poll), m.refreshCmd())
	case busMsg:
		// Another surface changed the tracking state; refresh ahead of the
		// next poll and re-arm the wait.
		return m, tea.Batch(m.waitBusCmd(), m.refreshCmd())
	case stateMsg:
		m.state = msg.state
		m.snap, _ = m.widget.Load()
	case actionDoneMsg:
		switch {
		case msg.err != nil:
			m.status = "action failed: " + msg.err.Error()
		case msg.outcome == surface.ClickOpenSelection:
			m.status = "nothing running; start with: solidverdant start"
		case msg.outcome == surface.ClickNotLoggedIn:
			m.status = "not logged in; run: solidverdant login"
		default:
			m.status = ""
		}
		return m, m.refreshCmd()
	}
	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render("SolidVerdant")

	var line string
	switch m.state.Kind {
	case track.StateNotLoggedIn:
		line = idleStyle.Render("Not logged in")
	case track.StateInactive:
		line = idleStyle.Render("Not tracking")
	case track.StateStarting:
		line = pendingStyle.Render("Starting" + nameSuffix(m.state))
	case track.StateStopping:
		line = pendingStyle.Render("Stopping")
	case track.StateActive:
		elapsed := ""
		if m.snap != nil && m.snap.Tracking {
			elapsed = surface.FormatElapsed(time.Since(m.snap.Start)) + " "
		}
		line = trackingStyle.Render(elapsed + "Tracking" + nameSuffix(m.state))
	}

	body := boxStyle.Width(max(20, m.width-4)).Render(line)
	help := helpStyle.Render("s start/stop  p pause  r resume  q quit")
	out := title + "\n\n" + body + "\n" + help
	if m.status != "" {
		out += "\n" + helpStyle.Render(m.status)
	}
	return out
}

func nameSuffix(state track.TileState) string {
	s := ""
	if state.ProjectName != nil {
		s += " " + *state.ProjectName
		if state.TaskName != nil {
			s += " / " + *state.TaskName
		}
	}
	if state.Description != nil {
		s += " (" + *state.Description + ")"
	}
	return s
}
