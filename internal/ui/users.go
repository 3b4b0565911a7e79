package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/foreman/internal/console"
)

// handleUsersKey processes keys on the Users tab.
func (m Model) handleUsersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.users.Items()

	switch {
	case key.Matches(msg, m.keys.Reload):
		return m, m.loadTab(TabUsers)
	case key.Matches(msg, m.keys.New):
		m.modal = m.inviteForm()
		return m, nil
	}

	if len(items) == 0 {
		return m, nil
	}
	m.userRow = clamp(m.userRow, len(items))
	selected := items[m.userRow]

	switch {
	case key.Matches(msg, m.keys.Up):
		m.userRow = clamp(m.userRow-1, len(items))
	case key.Matches(msg, m.keys.Down):
		m.userRow = clamp(m.userRow+1, len(items))
	case key.Matches(msg, m.keys.Top):
		m.userRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.userRow = len(items) - 1
	case key.Matches(msg, m.keys.AssignRole):
		m.modal = m.rolePicker(selected)
	}
	return m, nil
}

// inviteForm opens the invitation form. The role field accepts a role name
// or id.
func (m Model) inviteForm() formModal {
	users, ctx := m.users, m.ctx
	placeholder := "optional"
	if names := roleNames(users.Roles()); names != "" {
		placeholder = truncate(names, formWidth-10)
	}
	fields := []formField{
		newField("email", "Email", "", "teammate@example.com", 254),
		newField("name", "Name", "", "optional", 200),
		newField("roleid", "Role", "", placeholder, 100),
	}
	return newFormModal("Invite user", fields, func(v map[string]string) tea.Cmd {
		form := console.UserForm{
			Name:   v["name"],
			Email:  v["email"],
			RoleID: resolveRole(users.Roles(), v["roleid"]),
		}
		return func() tea.Msg {
			_, err := users.Invite(ctx, form)
			return formResultMsg{err: err}
		}
	})
}

// rolePicker changes the selected user's role.
func (m Model) rolePicker(u console.User) pickerModal {
	users, ctx := m.users, m.ctx
	options := make([]pickOption, 0)
	for _, r := range users.Roles() {
		options = append(options, pickOption{id: r.ID, label: ternary(r.Name != "", r.Name, r.ID)})
	}
	title := fmt.Sprintf("Role for %s", ternary(u.Name != "", u.Name, u.Email))
	userID := u.ID
	return newPickerModal(title, options, u.RoleID, func(roleID string) tea.Cmd {
		return func() tea.Msg {
			_, err := users.UpdateRole(ctx, userID, roleID)
			return actionResultMsg{err: err}
		}
	})
}

// resolveRole matches input against role names (case-insensitive) and ids.
// Unmatched input is passed through as an id.
func resolveRole(roles []console.Role, input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	for _, r := range roles {
		if strings.EqualFold(r.Name, input) || r.ID == input {
			return r.ID
		}
	}
	return input
}

func roleNames(roles []console.Role) string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		if r.Name != "" {
			names = append(names, r.Name)
		}
	}
	return strings.Join(names, ", ")
}

// renderUsers renders the Users tab.
func (m Model) renderUsers(width int) string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	items := m.users.Items()

	title := fmt.Sprintf("Users (%d)", len(items))
	if len(items) == 0 {
		return m.renderTitledBox(title, m.emptyState(TabUsers, "No users yet. Press n to invite someone."), width, height, true)
	}

	inner := width - 2
	nameWidth := maxInt(inner*30/100, 10)
	roleWidth := maxInt(inner*20/100, 8)
	emailWidth := maxInt(inner-nameWidth-roleWidth-4, 0)

	lines := make([]string, 0, len(items))
	for i, u := range items {
		rowBg := m.theme.FocusBg
		textStyle := styles.Text
		mutedStyle := styles.MutedText
		if i == m.userRow {
			rowBg = m.theme.SelectionBg
			textStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
			mutedStyle = textStyle
		}
		bg := NewBgStyle(rowBg)
		name := ternary(u.Name != "", u.Name, "—")
		role := "no role"
		if u.RoleID != "" {
			role = m.users.RoleName(u.RoleID)
		}
		row := bg.Space() +
			bg.Render(padRight(truncate(name, nameWidth), nameWidth), textStyle.Bold(true)) +
			bg.Space() +
			bg.Render(padRight(truncate(u.Email, emailWidth), emailWidth), textStyle) +
			bg.Space() +
			bg.Render(truncate(role, roleWidth), ternaryStyle(u.RoleID != "", styles.AccentText, mutedStyle))
		lines = append(lines, bg.FillLine(row, inner))
	}
	return m.renderTitledBox(title, scrollWindow(lines, m.userRow, height-2), width, height, true)
}
