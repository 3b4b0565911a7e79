package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/foreman/internal/api"
	"github.com/five82/foreman/internal/console"
)

// handleProjectsKey processes keys on the Projects tab.
func (m Model) handleProjectsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.projects.Items()

	switch {
	case key.Matches(msg, m.keys.Reload):
		return m, m.loadTab(TabProjects)
	case key.Matches(msg, m.keys.New):
		m.modal = m.projectForm(console.Project{})
		return m, nil
	}

	if len(items) == 0 {
		return m, nil
	}
	m.projectRow = clamp(m.projectRow, len(items))
	selected := items[m.projectRow]

	switch {
	case key.Matches(msg, m.keys.Up):
		m.projectRow = clamp(m.projectRow-1, len(items))
	case key.Matches(msg, m.keys.Down):
		m.projectRow = clamp(m.projectRow+1, len(items))
	case key.Matches(msg, m.keys.Top):
		m.projectRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.projectRow = len(items) - 1
	case key.Matches(msg, m.keys.Edit):
		m.modal = m.projectForm(selected)
	case key.Matches(msg, m.keys.Archive):
		if selected.Status == console.StatusArchived {
			return m, nil
		}
		return m, archiveCmd(m, selected, !m.confirmDestructive)
	}
	return m, nil
}

// projectForm opens the create form for a zero project and the edit form
// otherwise.
func (m Model) projectForm(p console.Project) formModal {
	projects, ctx := m.projects, m.ctx
	fields := []formField{
		newField("name", "Name", p.Name, "Q3 launch", 200),
		newField("description", "Description", p.Description, "optional", 2000),
	}
	title := "New project"
	if p.ID != "" {
		title = "Edit project"
	}
	id := p.ID
	return newFormModal(title, fields, func(v map[string]string) tea.Cmd {
		form := console.ProjectForm{Name: v["name"], Description: v["description"]}
		return func() tea.Msg {
			var err error
			if id == "" {
				_, err = projects.Create(ctx, form)
			} else {
				_, err = projects.Update(ctx, id, form)
			}
			return formResultMsg{err: err}
		}
	})
}

func archiveCmd(m Model, p console.Project, allowDelete bool) tea.Cmd {
	projects, ctx := m.projects, m.ctx
	return func() tea.Msg {
		err := projects.Archive(ctx, p.ID, allowDelete)
		return archiveResultMsg{id: p.ID, name: p.Name, err: err}
	}
}

func deleteCmd(m Model, id string) tea.Cmd {
	projects, ctx := m.projects, m.ctx
	return func() tea.Msg {
		return actionResultMsg{err: projects.Delete(ctx, id)}
	}
}

// handleArchiveResult escalates to a delete confirmation when the backend has
// no archive route. Other failures were already reported as toasts.
func (m Model) handleArchiveResult(msg archiveResultMsg) (tea.Model, tea.Cmd) {
	m.clampRows()
	if errors.Is(msg.err, console.ErrConfirmationRequired) {
		name := msg.name
		if name == "" {
			name = msg.id
		}
		m.modal = confirmModal{
			title: "Delete project?",
			body: fmt.Sprintf("The backend would not archive %q: %s\nDelete it permanently instead? This cannot be undone.",
				name, api.Message(msg.err)),
			onConfirm: deleteCmd(m, msg.id),
		}
	}
	return m, nil
}

// handleFormResult closes the open form on success, or shows field errors.
func (m Model) handleFormResult(msg formResultMsg) (tea.Model, tea.Cmd) {
	m.clampRows()
	form, ok := m.modal.(formModal)
	if !ok {
		return m, nil
	}
	var verr *console.ValidationError
	switch {
	case msg.err == nil:
		m.modal = nil
	case errors.As(msg.err, &verr):
		m.modal = form.withErrors(verr.Fields)
	default:
		// The error toast is already up; keep the form so the user can retry.
		m.modal = form.withErrors(nil)
	}
	return m, nil
}

// renderProjects renders the Projects tab.
func (m Model) renderProjects(width int) string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	items := m.projects.Items()

	title := fmt.Sprintf("Projects (%d)", len(items))
	if len(items) == 0 {
		return m.renderTitledBox(title, m.emptyState(TabProjects, "No projects yet. Press n to create one."), width, height, true)
	}

	inner := width - 2
	bgColor := m.theme.FocusBg
	nameWidth := maxInt(inner*35/100, 12)
	statusWidth := 10
	descWidth := maxInt(inner-nameWidth-statusWidth-4, 0)

	lines := make([]string, 0, len(items))
	for i, p := range items {
		rowBg := bgColor
		textStyle := styles.Text
		if i == m.projectRow {
			rowBg = m.theme.SelectionBg
			textStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		}
		bg := NewBgStyle(rowBg)
		badge := styles.StatusStyle(string(p.Status)).Render(padRight(string(p.Status), statusWidth-2))
		row := bg.Space() +
			bg.Render(padRight(truncate(p.Name, nameWidth), nameWidth), textStyle.Bold(true)) +
			bg.Space() + badge + bg.Space() +
			bg.Render(truncate(oneLine(p.Description), descWidth), ternaryStyle(i == m.projectRow, textStyle, styles.MutedText))
		lines = append(lines, bg.FillLine(row, inner))
	}
	return m.renderTitledBox(title, scrollWindow(lines, m.projectRow, height-2), width, height, true)
}

// emptyState is the placeholder for an empty or failed tab.
func (m Model) emptyState(tab Tab, empty string) string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	switch {
	case m.loadErr[tab] != "":
		return styles.DangerText.Render(" Could not load: ") + styles.MutedText.Render(m.loadErr[tab]+"  (r to retry)")
	case !m.loaded[tab]:
		return styles.MutedText.Render(" Loading...")
	default:
		return styles.MutedText.Render(" " + empty)
	}
}

// scrollWindow keeps the cursor row visible in a list taller than height.
func scrollWindow(lines []string, cursor, height int) string {
	if height <= 0 || len(lines) <= height {
		return strings.Join(lines, "\n")
	}
	start := cursor - height/2
	start = max(0, min(start, len(lines)-height))
	return strings.Join(lines[start:start+height], "\n")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func ternaryStyle(cond bool, a, b lipgloss.Style) lipgloss.Style {
	if cond {
		return a
	}
	return b
}

// errorText is the user-facing text for err.
func errorText(err error) string {
	return api.Message(err)
}
