package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/foreman/internal/logtail"
)

// activityState holds the Activity tab: the tail of foreman's own log.
type activityState struct {
	lines    []string
	follow   bool
	pending  bool
	follower *logtail.Follower
	viewport viewport.Model
	err      string
}

type activityMsg struct {
	lines    []string
	reset    bool
	follower *logtail.Follower
	err      error
}

// openActivityCmd reads recent history and positions a follower at the end
// of the file.
func openActivityCmd(path string) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtail.Read(path, ActivityInitialLines)
		if err != nil {
			return activityMsg{reset: true, err: err}
		}
		f := logtail.NewFollower(path)
		if err := f.SkipToEnd(); err != nil {
			return activityMsg{reset: true, lines: lines, err: err}
		}
		return activityMsg{reset: true, lines: lines, follower: f}
	}
}

func followActivityCmd(f *logtail.Follower) tea.Cmd {
	return func() tea.Msg {
		lines, err := f.Next()
		return activityMsg{lines: lines, err: err}
	}
}

func (m *Model) resizeActivity() {
	w, h := maxInt(m.width-2, 1), maxInt(m.contentHeight()-2, 1)
	if m.activity.viewport.Width == 0 && m.activity.viewport.Height == 0 {
		m.activity.viewport = viewport.New(w, h)
	}
	m.activity.viewport.Width = w
	m.activity.viewport.Height = h
	m.refreshActivityViewport()
}

func (m *Model) handleActivity(msg activityMsg) {
	if msg.reset {
		m.activity.lines = msg.lines
		m.activity.follower = msg.follower
		m.activity.pending = false
		m.loaded[TabActivity] = true
	} else {
		m.activity.pending = false
		m.activity.lines = append(m.activity.lines, msg.lines...)
	}
	if extra := len(m.activity.lines) - ActivityBufferLimit; extra > 0 {
		m.activity.lines = append([]string(nil), m.activity.lines[extra:]...)
	}
	m.activity.err = ""
	if msg.err != nil {
		m.activity.err = msg.err.Error()
	}
	m.refreshActivityViewport()
}

func (m *Model) refreshActivityViewport() {
	if m.activity.viewport.Width == 0 {
		return
	}
	m.activity.viewport.SetContent(m.renderActivityLines())
	if m.activity.follow {
		m.activity.viewport.GotoBottom()
	}
}

// handleActivityKey scrolls the log. Scrolling up pauses follow mode.
func (m Model) handleActivityKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Follow):
		m.activity.follow = !m.activity.follow
		if m.activity.follow {
			m.activity.viewport.GotoBottom()
		}
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		m.activity.follow = true
		return m, openActivityCmd(m.logPath)
	case key.Matches(msg, m.keys.Top):
		m.activity.follow = false
		m.activity.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.activity.follow = true
		m.activity.viewport.GotoBottom()
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.activity.follow = false
	}

	var cmd tea.Cmd
	m.activity.viewport, cmd = m.activity.viewport.Update(msg)
	if m.activity.viewport.AtBottom() && key.Matches(msg, m.keys.Down) {
		m.activity.follow = true
	}
	return m, cmd
}

// renderActivityLines formats the buffered log records, colored by level.
func (m Model) renderActivityLines() string {
	styles := m.theme.Styles()
	if len(m.activity.lines) == 0 {
		return styles.MutedText.Render(" No activity yet.")
	}
	out := make([]string, 0, len(m.activity.lines))
	for _, line := range m.activity.lines {
		entry := logtail.Parse(line)
		out = append(out, " "+levelStyle(entry.Level, styles).Render(entry.Format()))
	}
	return strings.Join(out, "\n")
}

func levelStyle(level string, styles Styles) lipgloss.Style {
	switch level {
	case "ERROR":
		return styles.DangerText
	case "WARN":
		return styles.WarningText
	case "DEBUG":
		return styles.FaintText
	default:
		return styles.Text
	}
}

// renderActivity renders the Activity tab.
func (m Model) renderActivity(width int) string {
	height := m.contentHeight()
	title := fmt.Sprintf("Activity · %s", truncateMiddle(m.logPath, maxInt(width/2, 20)))
	if !m.activity.follow {
		title += " (paused)"
	}
	if !m.loaded[TabActivity] {
		return m.renderTitledBox(title, m.emptyState(TabActivity, ""), width, height, true)
	}
	content := m.activity.viewport.View()
	if m.activity.err != "" {
		styles := m.theme.Styles()
		content = styles.DangerText.Render(" "+m.activity.err) + "\n" + content
	}
	return m.renderTitledBox(title, content, width, height, true)
}
