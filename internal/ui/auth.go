package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/foreman/internal/prefs"
	"github.com/five82/foreman/internal/session"
	"github.com/five82/foreman/internal/state"
)

type authMode int

const (
	authSignIn authMode = iota
	authRegister
)

type authResultMsg struct {
	mode          authMode
	email         string
	authenticated bool
	err           error
}

// newAuthForm builds the sign-in or registration form. The email field is
// prefilled from the last successful sign-in.
func (m Model) newAuthForm(mode authMode) formModal {
	sess, ctx := m.sess, m.ctx
	email := newField("email", "Email", m.lastEmail, "you@example.com", 254)
	password := newPasswordField("password", "Password")

	if mode == authRegister {
		fields := []formField{newField("name", "Name", "", "Ada Lovelace", 200), email, password}
		return newFormModal("Create account", fields, func(v map[string]string) tea.Cmd {
			if errs := requireFields(v, "name", "email", "password"); errs != nil {
				return validationCmd(errs)
			}
			return func() tea.Msg {
				ok, err := sess.Register(ctx, strings.TrimSpace(v["name"]), strings.TrimSpace(v["email"]), v["password"])
				return authResultMsg{mode: authRegister, email: strings.TrimSpace(v["email"]), authenticated: ok, err: err}
			}
		})
	}

	form := newFormModal("Sign in", []formField{email, password}, func(v map[string]string) tea.Cmd {
		if errs := requireFields(v, "email", "password"); errs != nil {
			return validationCmd(errs)
		}
		return func() tea.Msg {
			err := sess.Login(ctx, strings.TrimSpace(v["email"]), v["password"])
			return authResultMsg{mode: authSignIn, email: strings.TrimSpace(v["email"]), authenticated: err == nil, err: err}
		}
	})
	if m.lastEmail != "" {
		form.focusField(1)
	}
	return form
}

var requiredMessages = map[string]string{
	"name":     "Name is required",
	"email":    "Email is required",
	"password": "Password is required",
}

func requireFields(values map[string]string, keys ...string) map[string]string {
	var errs map[string]string
	for _, k := range keys {
		if strings.TrimSpace(values[k]) == "" {
			if errs == nil {
				errs = make(map[string]string)
			}
			errs[k] = requiredMessages[k]
		}
	}
	return errs
}

type authInvalidMsg struct {
	fields map[string]string
}

func validationCmd(fields map[string]string) tea.Cmd {
	return func() tea.Msg { return authInvalidMsg{fields: fields} }
}

// handleAuthKey processes keys on the sign-in screen.
func (m Model) handleAuthKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.SwitchMode) && !m.auth.submitting {
		if m.authMode == authSignIn {
			m.authMode = authRegister
		} else {
			m.authMode = authSignIn
		}
		m.auth = m.newAuthForm(m.authMode)
		return m, nil
	}
	updated, cmd, _ := m.auth.Update(msg, m.keys)
	m.auth = updated.(formModal)
	return m, cmd
}

func (m Model) handleAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.auth = m.auth.withErrors(nil)
		title := "Sign in failed"
		if msg.mode == authRegister {
			title = "Registration failed"
		}
		if m.hub != nil {
			m.hub.Error(title, errorText(msg.err))
		}
		return m, nil
	}

	m.lastEmail = msg.email
	email := msg.email
	_ = prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.LastEmail = email })

	if !msg.authenticated {
		if m.hub != nil {
			m.hub.Success("Account created", "Sign in to continue.")
		}
		m.authMode = authSignIn
		m.auth = m.newAuthForm(authSignIn)
		return m, nil
	}

	m.screen = screenMain
	m.authMode = authSignIn
	m.auth = m.newAuthForm(authSignIn)
	if m.store != nil {
		m.store.Update(m.sess.Snapshot(), false, nil)
	}
	var cmds []tea.Cmd
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	cmds = append(cmds, m.loadTab(m.tab))
	return m, tea.Batch(cmds...)
}

func (m Model) handleLoggedOut() (tea.Model, tea.Cmd) {
	m.leaveTab(m.tab)
	m.screen = screenAuth
	m.authMode = authSignIn
	m.auth = m.newAuthForm(authSignIn)
	m.modal = nil
	m.snapshot = state.Snapshot{}
	if m.store != nil {
		m.store.Reset()
	}
	if m.hub != nil {
		m.hub.Info("Signed out", "")
	}
	return m, nil
}

// screenForState picks the screen matching the session lifecycle.
func screenForState(sess SessionService) screen {
	if sess == nil {
		return screenAuth
	}
	switch sess.Snapshot().State {
	case session.StateInitializing:
		return screenStarting
	case session.StateAuthenticated:
		return screenMain
	default:
		return screenAuth
	}
}

type sessionReadyMsg struct{ err error }

// initSessionCmd restores the stored credential off the UI goroutine.
func initSessionCmd(ctx context.Context, sess SessionService) tea.Cmd {
	return func() tea.Msg {
		return sessionReadyMsg{err: sess.Init(ctx)}
	}
}

func (m Model) handleSessionReady(msg sessionReadyMsg) (tea.Model, tea.Cmd) {
	snap := m.sess.Snapshot()
	if m.hub != nil {
		if msg.err != nil {
			m.hub.Error("Stored session unreadable", errorText(msg.err))
		}
		if snap.Claims.Expired(time.Now()) {
			m.hub.Info("Session may have expired", "The stored token is past its expiry. Press L to sign in again.")
		}
	}
	m.screen = screenForState(m.sess)
	if m.screen == screenMain {
		return m, m.loadTab(m.tab)
	}
	return m, nil
}

// renderStarting is shown while the stored credential is restored.
func (m Model) renderStarting() string {
	styles := m.theme.Styles()
	return m.overlay(lipgloss.JoinVertical(lipgloss.Center,
		styles.Logo.Render("foreman"),
		styles.MutedText.Render(m.targetLabel()),
		"",
		styles.FaintText.Render("Restoring session...")))
}

// renderAuth renders the sign-in screen with any toasts below the form.
func (m Model) renderAuth() string {
	styles := m.theme.Styles()

	logo := styles.Logo.Render("foreman")
	target := styles.MutedText.Render(m.targetLabel())
	form := m.auth.View(m.theme, m.width, m.height)

	modeHint := "ctrl+r create an account"
	if m.authMode == authRegister {
		modeHint = "ctrl+r back to sign in"
	}

	parts := []string{logo, target, "", form, styles.FaintText.Render(modeHint + " · ctrl+c quit")}
	if toasts := m.renderToastStack(); toasts != "" {
		parts = append(parts, "", toasts)
	}
	return m.overlay(lipgloss.JoinVertical(lipgloss.Center, parts...))
}

// targetLabel names the backend being administered.
func (m Model) targetLabel() string {
	if m.baseURL == "" {
		return "no base URL (relative paths)"
	}
	return m.baseURL
}
