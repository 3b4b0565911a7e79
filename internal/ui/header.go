package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/foreman/internal/api"
)

// renderHeader renders the status bar: target, principal, session health and
// the busy indicator.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("foreman", styles.Logo)}

	target := m.targetLabel()
	if compact {
		target = truncateMiddle(target, 28)
	}
	parts = append(parts, bg.Render(target, styles.MutedText))

	if name := m.snapshot.Session.DisplayName(); name != "" {
		parts = append(parts, bg.Render("as", styles.FaintText)+bg.Space()+bg.Render(name, styles.Text.Bold(true)))
	}

	parts = append(parts, m.healthIndicator(styles, bg, compact))

	if ts := m.formatChecked(); ts != "" && !compact {
		parts = append(parts, bg.Render(ts, styles.FaintText))
	}

	if m.hub != nil && m.hub.Busy() {
		parts = append(parts, bg.Render(m.spinner.View(), styles.AccentText)+bg.Space()+
			bg.Render("Working", styles.AccentText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// healthIndicator summarizes the heartbeat.
func (m Model) healthIndicator(styles Styles, bg BgStyle, compact bool) string {
	switch {
	case m.snapshot.Expired:
		return bg.Render("● EXPIRED", styles.WarningText.Bold(true)) + bg.Space() +
			bg.Render("press L to sign in again", styles.MutedText)
	case m.snapshot.IsOffline():
		label := bg.Render("● OFFLINE", styles.DangerText)
		if m.snapshot.LastError != nil {
			maxErr := 60
			if compact {
				maxErr = 30
			}
			label += bg.Space() + bg.Render(truncate(classifyConnectionError(m.snapshot.LastError), maxErr), styles.DangerText)
		}
		return label + bg.Space() + bg.Render("Retrying...", styles.WarningText)
	case m.snapshot.LastChecked.IsZero():
		return bg.Render("● CHECKING", styles.MutedText)
	default:
		return bg.Render("● ONLINE", styles.SuccessText)
	}
}

// formatChecked formats the last heartbeat time with a relative indicator.
func (m Model) formatChecked() string {
	if m.snapshot.LastChecked.IsZero() {
		return ""
	}
	since := time.Since(m.snapshot.LastChecked)
	ts := m.snapshot.LastChecked.Format("15:04:05")
	switch {
	case since < time.Minute:
		ts += " (now)"
	case since < time.Hour:
		ts += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	}
	return ts
}

// classifyConnectionError returns a short description of a heartbeat failure.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}
	if status := api.StatusOf(err); status != 0 {
		return fmt.Sprintf("HTTP %d", status)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "unreachable"
	case strings.Contains(msg, "no such host"):
		return "host not found"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "timeout"
	default:
		return msg
	}
}

// renderTabBar renders the numbered tab strip.
func (m Model) renderTabBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Background)
	bg := NewBgStyle(m.theme.Background)

	tabs := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if Tab(i) == m.tab {
			tabs = append(tabs, styles.TabActive.Render(label))
		} else {
			tabs = append(tabs, styles.TabInactive.Render(label))
		}
	}
	return bg.FillLine(strings.Join(tabs, bg.Space()), m.width)
}

type cmdHint struct{ key, desc string }

// renderCommandBar renders the key hints for the active tab.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	k := m.keys

	var commands []cmdHint
	switch m.tab {
	case TabProjects:
		commands = []cmdHint{
			hint(k.New, "New"),
			hint(k.Edit, "Edit"),
			hint(k.Archive, "Archive"),
			hint(k.Reload, "Reload"),
			{"j/k", "Navigate"},
		}
	case TabUsers:
		commands = []cmdHint{
			hint(k.New, "Invite"),
			hint(k.AssignRole, "Role"),
			hint(k.Reload, "Reload"),
			{"j/k", "Navigate"},
		}
	case TabRoles:
		commands = []cmdHint{
			{"h/l", "Focus"},
			hint(k.Toggle, "Toggle"),
			hint(k.Save, "Save"),
			hint(k.AssignRole, "Assign"),
			hint(k.Reload, "Reload"),
		}
	case TabActivity:
		commands = []cmdHint{
			hint(k.Follow, ternary(m.activity.follow, "Pause", "Follow")),
			{"g/G", "Top/Bottom"},
			hint(k.Reload, "Reload"),
		}
	}
	commands = append(commands,
		hint(k.Tab, "Tabs"),
		hint(k.Logout, "Log out"),
		hint(k.Help, "More"),
	)

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments, bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render(k.CycleTheme.Help().Key, styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Footer.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// renderToastStack renders the newest toasts, oldest first, one box each.
func (m Model) renderToastStack() string {
	if m.hub == nil {
		return ""
	}
	toasts := m.hub.Toasts()
	if len(toasts) == 0 {
		return ""
	}
	if len(toasts) > maxToasts {
		toasts = toasts[len(toasts)-maxToasts:]
	}

	styles := m.theme.Styles()
	boxes := make([]string, 0, len(toasts))
	for _, t := range toasts {
		color := m.theme.StatusColors[string(t.Kind)]
		if color == "" {
			color = m.theme.Border
		}
		body := styles.Text.Bold(true).Render(truncate(t.Title, toastWidth-4))
		if t.Description != "" {
			body += "\n" + styles.MutedText.Width(toastWidth-4).Render(t.Description)
		}
		boxes = append(boxes, lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(color)).
			Padding(0, 1).
			Width(toastWidth-2).
			Render(body))
	}
	return lipgloss.JoinVertical(lipgloss.Right, boxes...)
}

// withToasts renders the content area, reserving a right-hand column for the
// toast stack while any toast is visible.
func (m Model) withToasts(render func(width int) string) string {
	stack := m.renderToastStack()
	if stack == "" {
		return render(m.width)
	}
	if m.width < toastWidth*2 {
		// Too narrow for a column: the stack covers the bottom of the content.
		lines := strings.Split(render(m.width), "\n")
		stackLines := strings.Split(stack, "\n")
		start := max(len(lines)-len(stackLines), 0)
		for i, l := range stackLines {
			if start+i < len(lines) {
				lines[start+i] = lipgloss.PlaceHorizontal(m.width, lipgloss.Right, l)
			}
		}
		return strings.Join(lines, "\n")
	}
	content := render(m.width - toastWidth)
	column := lipgloss.PlaceVertical(m.contentHeight(), lipgloss.Bottom, stack)
	column = lipgloss.NewStyle().Width(toastWidth).MaxHeight(m.contentHeight()).Render(column)
	return lipgloss.JoinHorizontal(lipgloss.Top, content, column)
}
