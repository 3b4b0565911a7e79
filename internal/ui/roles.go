package ui

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/foreman/internal/console"
)

// handleRolesKey processes keys on the Roles tab. The left pane lists roles,
// the right pane edits the selected role's permissions.
func (m Model) handleRolesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Reload) {
		clear(m.permsLoaded)
		return m, m.loadTab(TabRoles)
	}

	roles := m.roles.Items()
	if len(roles) == 0 {
		return m, nil
	}
	m.roleRow = clamp(m.roleRow, len(roles))
	role := roles[m.roleRow]
	perms := m.roles.Permissions(role.ID)

	switch {
	case key.Matches(msg, m.keys.Left):
		m.permFocus = false
		return m, nil
	case key.Matches(msg, m.keys.Right):
		m.permFocus = true
		return m, nil
	case key.Matches(msg, m.keys.Save):
		return m, savePermissionsCmd(m, role.ID)
	case key.Matches(msg, m.keys.AssignRole):
		return m, assignUsersCmd(m, role.ID)
	}

	if m.permFocus {
		switch {
		case key.Matches(msg, m.keys.Up):
			m.permRow = clamp(m.permRow-1, len(perms))
		case key.Matches(msg, m.keys.Down):
			m.permRow = clamp(m.permRow+1, len(perms))
		case key.Matches(msg, m.keys.Top):
			m.permRow = 0
		case key.Matches(msg, m.keys.Bottom):
			m.permRow = clamp(len(perms)-1, len(perms))
		case key.Matches(msg, m.keys.Toggle):
			if len(perms) > 0 {
				m.roles.TogglePermission(role.ID, perms[clamp(m.permRow, len(perms))].Key)
			}
		}
		return m, nil
	}

	prev := m.roleRow
	switch {
	case key.Matches(msg, m.keys.Up):
		m.roleRow = clamp(m.roleRow-1, len(roles))
	case key.Matches(msg, m.keys.Down):
		m.roleRow = clamp(m.roleRow+1, len(roles))
	case key.Matches(msg, m.keys.Top):
		m.roleRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.roleRow = len(roles) - 1
	case key.Matches(msg, m.keys.Toggle):
		m.permFocus = true
	}
	if m.roleRow != prev {
		m.permRow = 0
		return m, m.loadSelectedPermissions()
	}
	return m, nil
}

// loadSelectedPermissions fetches the selected role's permissions once per
// visit.
func (m Model) loadSelectedPermissions() tea.Cmd {
	roles := m.roles.Items()
	if len(roles) == 0 {
		return nil
	}
	roleID := roles[clamp(m.roleRow, len(roles))].ID
	if m.permsLoaded[roleID] {
		return nil
	}
	r, ctx := m.roles, m.ctx
	return func() tea.Msg {
		_, err := r.LoadPermissions(ctx, roleID)
		return permissionsMsg{roleID: roleID, err: err}
	}
}

func savePermissionsCmd(m Model, roleID string) tea.Cmd {
	r, ctx := m.roles, m.ctx
	return func() tea.Msg {
		return actionResultMsg{err: r.SavePermissions(ctx, roleID)}
	}
}

// assignUsersCmd refreshes the user list before offering it in the picker.
func assignUsersCmd(m Model, roleID string) tea.Cmd {
	users, ctx := m.users, m.ctx
	return func() tea.Msg {
		return assignUsersMsg{roleID: roleID, err: users.Load(ctx)}
	}
}

// openAssignPicker offers the users who can receive the role.
func (m Model) openAssignPicker(msg assignUsersMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil || m.tab != TabRoles {
		return m, nil
	}
	roleName := msg.roleID
	for _, r := range m.roles.Items() {
		if r.ID == msg.roleID && r.Name != "" {
			roleName = r.Name
		}
	}
	users, ctx := m.users, m.ctx
	var options []pickOption
	for _, u := range users.Items() {
		label := ternary(u.Name != "", u.Name+" <"+u.Email+">", u.Email)
		options = append(options, pickOption{id: u.ID, label: label})
	}
	roleID := msg.roleID
	m.modal = newPickerModal(fmt.Sprintf("Assign %s to", roleName), options, "", func(userID string) tea.Cmd {
		return func() tea.Msg {
			_, err := users.AssignRole(ctx, userID, roleID)
			return actionResultMsg{err: err}
		}
	})
	return m, nil
}

// permissionsDirty reports unsaved edits for role.
func permissionsDirty(role console.Role, perms []console.Permission) bool {
	for _, p := range perms {
		if p.Granted != slices.Contains(role.Permissions, p.Key) {
			return true
		}
	}
	return false
}

// renderRoles renders the Roles tab: role list and permission editor side by
// side, or stacked on narrow terminals.
func (m Model) renderRoles(width int) string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	roles := m.roles.Items()

	title := fmt.Sprintf("Roles (%d)", len(roles))
	if len(roles) == 0 {
		return m.renderTitledBox(title, m.emptyState(TabRoles, "No roles defined."), width, height, true)
	}
	selected := roles[clamp(m.roleRow, len(roles))]
	perms := m.roles.Permissions(selected.ID)

	listWidth := maxInt(width*35/100, 20)
	permWidth := width - listWidth
	listHeight, permHeight := height, height
	split := width >= LayoutSplitWidth
	if !split {
		listWidth, permWidth = width, width
		listHeight = maxInt(height/3, 4)
		permHeight = height - listHeight
	}

	roleLines := make([]string, 0, len(roles))
	for i, r := range roles {
		rowBg := ternary(m.permFocus, m.theme.SurfaceAlt, m.theme.FocusBg)
		textStyle := styles.Text
		if i == m.roleRow {
			rowBg = m.theme.SelectionBg
			textStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		}
		bg := NewBgStyle(rowBg)
		label := ternary(r.Name != "", r.Name, r.ID)
		count := fmt.Sprintf("%d", len(r.Permissions))
		nameWidth := maxInt(listWidth-2-len(count)-3, 4)
		row := bg.Space() + bg.Render(padRight(truncate(label, nameWidth), nameWidth), textStyle.Bold(i == m.roleRow)) +
			bg.Space() + bg.Render(count, styles.MutedText)
		roleLines = append(roleLines, bg.FillLine(row, listWidth-2))
	}
	list := m.renderTitledBox(title, scrollWindow(roleLines, m.roleRow, listHeight-2), listWidth, listHeight, !m.permFocus)

	permTitle := "Permissions · " + ternary(selected.Name != "", selected.Name, selected.ID)
	if permissionsDirty(selected, perms) {
		permTitle += " (unsaved, s to save)"
	}
	permLines := make([]string, 0, len(perms))
	for i, p := range perms {
		rowBg := ternary(m.permFocus, m.theme.FocusBg, m.theme.SurfaceAlt)
		textStyle := styles.Text
		if m.permFocus && i == m.permRow {
			rowBg = m.theme.SelectionBg
			textStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		}
		bg := NewBgStyle(rowBg)
		box := ternary(p.Granted, "[x]", "[ ]")
		boxStyle := ternaryStyle(p.Granted, styles.SuccessText, styles.MutedText)
		row := bg.Space() + bg.Render(box, boxStyle) + bg.Space() +
			bg.Render(padRight(p.Key, 18), textStyle) + bg.Space() +
			bg.Render(titleCase(p.Key), styles.FaintText)
		permLines = append(permLines, bg.FillLine(row, permWidth-2))
	}
	if !m.permsLoaded[selected.ID] {
		permLines = append(permLines, "", styles.FaintText.Render(" Loading permissions..."))
	}
	editor := m.renderTitledBox(permTitle, scrollWindow(permLines, m.permRow, permHeight-2), permWidth, permHeight, m.permFocus)

	if split {
		return lipgloss.JoinHorizontal(lipgloss.Top, list, editor)
	}
	return lipgloss.JoinVertical(lipgloss.Left, list, editor)
}
