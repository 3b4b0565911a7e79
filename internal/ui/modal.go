package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// Update returns the updated modal, a command, and whether the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// formField is one labelled text input.
type formField struct {
	key   string
	label string
	input textinput.Model
}

func newField(key, label, value, placeholder string, limit int) formField {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = formWidth - 8
	ti.SetValue(value)
	return formField{key: key, label: label, input: ti}
}

func newPasswordField(key, label string) formField {
	f := newField(key, label, "", "", 256)
	f.input.EchoMode = textinput.EchoPassword
	f.input.EchoCharacter = '•'
	return f
}

// formModal is a multi-field form. Submitting runs submit with the current
// values; the modal stays open until the model closes it so validation
// messages can be shown next to the fields.
type formModal struct {
	title      string
	fields     []formField
	focus      int
	errors     map[string]string
	submitting bool
	submit     func(values map[string]string) tea.Cmd
}

func newFormModal(title string, fields []formField, submit func(map[string]string) tea.Cmd) formModal {
	fm := formModal{title: title, fields: fields, submit: submit}
	fm.focusField(0)
	return fm
}

func (f *formModal) focusField(i int) {
	f.focus = clamp(i, len(f.fields))
	for idx := range f.fields {
		if idx == f.focus {
			f.fields[idx].input.Focus()
		} else {
			f.fields[idx].input.Blur()
		}
	}
}

func (f formModal) values() map[string]string {
	out := make(map[string]string, len(f.fields))
	for _, field := range f.fields {
		out[field.key] = field.input.Value()
	}
	return out
}

// withErrors shows field messages and re-enables the form.
func (f formModal) withErrors(fields map[string]string) formModal {
	f.errors = fields
	f.submitting = false
	for i, field := range f.fields {
		if _, ok := fields[field.key]; ok {
			f.focusField(i)
			break
		}
	}
	return f
}

func (f formModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		if len(f.fields) > 0 {
			f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
		}
		return f, cmd, false
	}

	switch {
	case key.Matches(keyMsg, keys.Escape):
		return f, nil, true
	case f.submitting:
		return f, nil, false
	case key.Matches(keyMsg, keys.NextField):
		f.focusField((f.focus + 1) % maxInt(len(f.fields), 1))
		return f, nil, false
	case key.Matches(keyMsg, keys.PrevField):
		f.focusField((f.focus - 1 + len(f.fields)) % maxInt(len(f.fields), 1))
		return f, nil, false
	case key.Matches(keyMsg, keys.Confirm):
		if f.focus < len(f.fields)-1 {
			f.focusField(f.focus + 1)
			return f, nil, false
		}
		f.submitting = true
		f.errors = nil
		return f, f.submit(f.values()), false
	}

	var cmd tea.Cmd
	if len(f.fields) > 0 {
		f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	}
	return f, cmd, false
}

func (f formModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(f.title))
	b.WriteString("\n\n")
	for i, field := range f.fields {
		label := styles.MutedText
		if i == f.focus {
			label = styles.AccentText
		}
		b.WriteString(label.Render(field.label))
		b.WriteString("\n")
		b.WriteString(field.input.View())
		b.WriteString("\n")
		if msg := f.errors[field.key]; msg != "" {
			b.WriteString(styles.DangerText.Render(msg))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	footer := "enter next · tab move · esc cancel"
	if f.submitting {
		footer = "Saving..."
	}
	b.WriteString(styles.FaintText.Render(footer))
	return styles.Modal.Width(min(formWidth, maxInt(width-4, 20))).Render(b.String())
}

// confirmModal asks a yes/no question.
type confirmModal struct {
	title     string
	body      string
	onConfirm tea.Cmd
}

func (c confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case keyMsg.String() == "y", keyMsg.String() == "Y", key.Matches(keyMsg, keys.Confirm):
		return c, c.onConfirm, true
	case key.Matches(keyMsg, keys.Escape), key.Matches(keyMsg, keys.Deny):
		return c, nil, true
	}
	return c, nil, false
}

func (c confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.DangerText.Render(c.title))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(c.body))
	b.WriteString("\n\n")
	b.WriteString(styles.AccentText.Render("y") + styles.MutedText.Render(" confirm   ") +
		styles.AccentText.Render("n/esc") + styles.MutedText.Render(" cancel"))
	return styles.Modal.
		BorderForeground(lipgloss.Color(theme.Danger)).
		Width(min(formWidth, maxInt(width-4, 20))).
		Render(b.String())
}

// pickOption is one choice in a pickerModal.
type pickOption struct {
	id    string
	label string
}

// pickerModal selects one option from a list and closes on confirm.
type pickerModal struct {
	title   string
	options []pickOption
	cursor  int
	onPick  func(id string) tea.Cmd
}

func newPickerModal(title string, options []pickOption, current string, onPick func(string) tea.Cmd) pickerModal {
	p := pickerModal{title: title, options: options, onPick: onPick}
	for i, opt := range options {
		if opt.id == current {
			p.cursor = i
			break
		}
	}
	return p
}

func (p pickerModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil, false
	}
	switch {
	case key.Matches(keyMsg, keys.Escape):
		return p, nil, true
	case key.Matches(keyMsg, keys.Up):
		p.cursor = clamp(p.cursor-1, len(p.options))
	case key.Matches(keyMsg, keys.Down):
		p.cursor = clamp(p.cursor+1, len(p.options))
	case key.Matches(keyMsg, keys.Confirm):
		if len(p.options) == 0 {
			return p, nil, true
		}
		return p, p.onPick(p.options[p.cursor].id), true
	}
	return p, nil, false
}

func (p pickerModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(p.title))
	b.WriteString("\n\n")
	if len(p.options) == 0 {
		b.WriteString(styles.MutedText.Render("Nothing to choose from"))
		b.WriteString("\n")
	}
	for i, opt := range p.options {
		line := padRight(opt.label, formWidth-8)
		if i == p.cursor {
			b.WriteString(styles.Selected.Render("› " + line))
		} else {
			b.WriteString(styles.Text.Render("  " + line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("j/k move · enter choose · esc cancel"))
	return styles.Modal.Width(min(formWidth, maxInt(width-4, 20))).Render(b.String())
}
