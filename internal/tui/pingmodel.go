package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/leoleoasd/rping/internal/icmpcore"
	"github.com/leoleoasd/rping/internal/ping"
)

// PingModel is the Bubble Tea model for the interactive ping chart,
// restoring the live terminal chart spec.md §1 mentions in passing.
type PingModel struct {
	target string
	cfg    ping.Config

	state   State
	err     error
	stats   ping.Stats
	window  *LatencyWindow
	styles  Styles
	statsCh <-chan ping.Stats
}

// pingStatMsg wraps a single received Stats snapshot.
type pingStatMsg struct {
	stats ping.Stats
	ok    bool
}

// NewPingModel creates a new ping TUI model.
func NewPingModel(target string, cfg ping.Config) *PingModel {
	return &PingModel{
		target: target,
		cfg:    cfg,
		state:  StateRunning,
		window: NewLatencyWindow(),
		styles: DefaultStyles(),
	}
}

// Init implements tea.Model.
func (m *PingModel) Init() tea.Cmd {
	return m.start()
}

func (m *PingModel) start() tea.Cmd {
	return func() tea.Msg {
		statsCh, err := ping.Run(context.Background(), m.cfg)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		m.statsCh = statsCh
		return m.waitForStat()()
	}
}

func (m *PingModel) waitForStat() tea.Cmd {
	return func() tea.Msg {
		stats, ok := <-m.statsCh
		return pingStatMsg{stats: stats, ok: ok}
	}
}

// Update implements tea.Model.
func (m *PingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case ErrorMsg:
		m.state = StateError
		m.err = msg.Err
		return m, tea.Quit

	case pingStatMsg:
		if !msg.ok {
			m.state = StateComplete
			return m, nil
		}
		m.stats = msg.stats
		m.window.Update(icmpcore.Event{OK: msg.stats.LastOK, Latency: msg.stats.LastLatency})
		return m, m.waitForStat()
	}

	return m, nil
}

// View implements tea.Model.
func (m *PingModel) View() string {
	title := m.styles.Title.Render(fmt.Sprintf("rping %s", m.target))

	var status string
	switch m.state {
	case StateRunning:
		status = "probing..."
	case StateComplete:
		status = m.styles.Success.Render("done")
	case StateError:
		status = m.styles.Error.Render(m.err.Error())
	}

	header := RenderHeader(m.styles, m.window.Stats(), m.stats.Sent)
	chart := RenderChart(m.styles, m.window)

	counts := fmt.Sprintf("sent %d received %d lost %d (%.1f%% loss)",
		m.stats.Sent, m.stats.Received, m.stats.Lost, m.stats.LossPercent)

	return title + "\n" + status + "\n\n" + header + "\n\n" + chart + "\n" + m.styles.Subtle.Render(counts) + "\n"
}

// RunPing starts the interactive ping TUI program and blocks until it exits.
func RunPing(target string, cfg ping.Config) error {
	m := NewPingModel(target, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	if fm, ok := finalModel.(*PingModel); ok && fm.state == StateError && fm.err != nil {
		return fm.err
	}
	return nil
}
