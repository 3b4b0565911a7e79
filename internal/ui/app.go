package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/foreman/internal/console"
	"github.com/five82/foreman/internal/notify"
	"github.com/five82/foreman/internal/prefs"
	"github.com/five82/foreman/internal/session"
	"github.com/five82/foreman/internal/state"
)

// Tab is a main-screen tab.
type Tab int

const (
	TabProjects Tab = iota
	TabUsers
	TabRoles
	TabActivity
)

var tabNames = []string{"Projects", "Users", "Roles", "Activity"}

func (t Tab) String() string {
	if int(t) < 0 || int(t) >= len(tabNames) {
		return tabNames[0]
	}
	return tabNames[t]
}

// ParseTab maps a saved tab name back to a Tab. Unknown names select Projects.
func ParseTab(name string) Tab {
	for i, n := range tabNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Tab(i)
		}
	}
	return TabProjects
}

type screen int

const (
	screenStarting screen = iota
	screenAuth
	screenMain
)

// SessionService is the part of *session.Manager the UI drives.
type SessionService interface {
	Init(ctx context.Context) error
	Snapshot() session.Snapshot
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, name, email, password string) (bool, error)
	Logout(ctx context.Context) error
}

// Options configures the UI.
type Options struct {
	Context            context.Context
	Session            SessionService
	Hub                *notify.Hub
	Projects           *console.Projects
	Users              *console.Users
	Roles              *console.Roles
	Store              *state.Store
	BaseURL            string
	LogPath            string
	ConfirmDestructive bool
	PollTick           time.Duration
	Prefs              prefs.Prefs
	PrefsPath          string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx                context.Context
	sess               SessionService
	hub                *notify.Hub
	projects           *console.Projects
	users              *console.Users
	roles              *console.Roles
	store              *state.Store
	baseURL            string
	logPath            string
	confirmDestructive bool
	prefsPath          string
	pollTick           time.Duration

	// UI state
	keys     keyMap
	theme    Theme
	width    int
	height   int
	ready    bool
	screen   screen
	tab      Tab
	showHelp bool
	modal    Modal
	spinner  spinner.Model
	spinning bool

	// Sign-in screen
	auth      formModal
	authMode  authMode
	lastEmail string

	// Session health from the heartbeat
	snapshot state.Snapshot

	// Per-tab state
	loadErr     map[Tab]string
	loaded      map[Tab]bool
	projectRow  int
	userRow     int
	roleRow     int
	permRow     int
	permFocus   bool
	permsLoaded map[string]bool

	activity activityState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := Model{
		ctx:                ctx,
		sess:               opts.Session,
		hub:                opts.Hub,
		projects:           opts.Projects,
		users:              opts.Users,
		roles:              opts.Roles,
		store:              opts.Store,
		baseURL:            opts.BaseURL,
		logPath:            opts.LogPath,
		confirmDestructive: opts.ConfirmDestructive,
		prefsPath:          prefsPath,
		pollTick:           pollTick,
		keys:               DefaultKeyMap(),
		theme:              GetTheme(opts.Prefs.Theme),
		spinner:            sp,
		tab:                ParseTab(opts.Prefs.LastTab),
		lastEmail:          opts.Prefs.LastEmail,
		loadErr:            make(map[Tab]string),
		loaded:             make(map[Tab]bool),
		permsLoaded:        make(map[string]bool),
		activity:           activityState{follow: true},
	}

	m.screen = screenForState(m.sess)
	m.auth = m.newAuthForm(authSignIn)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.pollTick),
		textinput.Blink,
	}
	if m.hub != nil {
		cmds = append(cmds, waitForHubCmd(m.ctx, m.hub))
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	switch m.screen {
	case screenStarting:
		cmds = append(cmds, initSessionCmd(m.ctx, m.sess))
	case screenMain:
		cmds = append(cmds, m.loadTab(m.tab))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeActivity()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		return m, nil

	case hubChangedMsg:
		cmds := []tea.Cmd{waitForHubCmd(m.ctx, m.hub)}
		if m.hub.Busy() && !m.spinning {
			m.spinning = true
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if m.hub == nil || !m.hub.Busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionReadyMsg:
		return m.handleSessionReady(msg)

	case authResultMsg:
		return m.handleAuthResult(msg)

	case authInvalidMsg:
		m.auth = m.auth.withErrors(msg.fields)
		return m, nil

	case loggedOutMsg:
		return m.handleLoggedOut()

	case loadedMsg:
		return m.handleLoaded(msg)

	case permissionsMsg:
		if !errors.Is(msg.err, console.ErrStale) {
			m.permsLoaded[msg.roleID] = true
		}
		m.clampRows()
		return m, nil

	case formResultMsg:
		return m.handleFormResult(msg)

	case archiveResultMsg:
		return m.handleArchiveResult(msg)

	case assignUsersMsg:
		return m.openAssignPicker(msg)

	case actionResultMsg:
		m.clampRows()
		return m, nil

	case activityMsg:
		m.handleActivity(msg)
		return m, nil
	}

	// Cursor blink and other component messages.
	if m.modal != nil {
		var cmd tea.Cmd
		m.modal, cmd, _ = m.modal.Update(msg, m.keys)
		return m, cmd
	}
	if m.screen == screenAuth {
		var cmd tea.Cmd
		var updated Modal
		updated, cmd, _ = m.auth.Update(msg, m.keys)
		m.auth = updated.(formModal)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.screen == screenStarting {
		return m.renderStarting()
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.screen == screenAuth {
		return m.renderAuth()
	}
	if m.modal != nil {
		return m.overlay(m.modal.View(m.theme, m.width, m.height))
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.screen == screenStarting {
		return m, nil
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		updated, cmd, closed := m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		} else {
			m.modal = updated
		}
		return m, cmd
	}

	if m.screen == screenAuth {
		return m.handleAuthKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		name := m.theme.Name
		_ = prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.Theme = name })
		return m, nil

	case key.Matches(msg, m.keys.Logout):
		return m, logoutCmd(m.ctx, m.sess)

	case key.Matches(msg, m.keys.TabProjects):
		return m.switchTab(TabProjects)
	case key.Matches(msg, m.keys.TabUsers):
		return m.switchTab(TabUsers)
	case key.Matches(msg, m.keys.TabRoles):
		return m.switchTab(TabRoles)
	case key.Matches(msg, m.keys.TabActivity):
		return m.switchTab(TabActivity)
	case key.Matches(msg, m.keys.Tab):
		return m.switchTab((m.tab + 1) % Tab(len(tabNames)))
	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchTab((m.tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames)))
	}

	switch m.tab {
	case TabProjects:
		return m.handleProjectsKey(msg)
	case TabUsers:
		return m.handleUsersKey(msg)
	case TabRoles:
		return m.handleRolesKey(msg)
	case TabActivity:
		return m.handleActivityKey(msg)
	}
	return m, nil
}

// switchTab leaves the current tab, so late results for it are dropped, and
// loads the new one.
func (m Model) switchTab(tab Tab) (tea.Model, tea.Cmd) {
	if tab == m.tab && m.loaded[tab] {
		return m, nil
	}
	m.leaveTab(m.tab)
	m.tab = tab
	name := tab.String()
	_ = prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.LastTab = name })
	return m, m.loadTab(tab)
}

func (m *Model) leaveTab(tab Tab) {
	switch tab {
	case TabProjects:
		m.projects.Leave()
	case TabUsers:
		m.users.Leave()
	case TabRoles:
		m.roles.Leave()
		clear(m.permsLoaded)
	}
	m.loaded[tab] = false
	delete(m.loadErr, tab)
}

// loadTab returns the command that fetches a tab's data.
func (m Model) loadTab(tab Tab) tea.Cmd {
	switch tab {
	case TabProjects:
		return loadCmd(tab, func() error { return m.projects.Load(m.ctx) })
	case TabUsers:
		return loadCmd(tab, func() error { return m.users.Load(m.ctx) })
	case TabRoles:
		return loadCmd(tab, func() error { return m.roles.Load(m.ctx) })
	case TabActivity:
		return openActivityCmd(m.logPath)
	}
	return nil
}

func (m Model) handleLoaded(msg loadedMsg) (tea.Model, tea.Cmd) {
	if msg.tab != m.tab || errors.Is(msg.err, console.ErrStale) {
		return m, nil
	}
	m.loaded[msg.tab] = true
	if msg.err != nil {
		m.loadErr[msg.tab] = errorText(msg.err)
	} else {
		delete(m.loadErr, msg.tab)
	}
	m.clampRows()
	if msg.tab == TabRoles && msg.err == nil {
		return m, m.loadSelectedPermissions()
	}
	return m, nil
}

// clampRows keeps every cursor inside its list after the lists change.
func (m *Model) clampRows() {
	m.projectRow = clamp(m.projectRow, len(m.projects.Items()))
	m.userRow = clamp(m.userRow, len(m.users.Items()))
	roles := m.roles.Items()
	m.roleRow = clamp(m.roleRow, len(roles))
	if len(roles) > 0 {
		m.permRow = clamp(m.permRow, len(m.roles.Permissions(roles[m.roleRow].ID)))
	}
}

// handleTick processes the UI tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}

	if m.screen == screenMain && m.tab == TabActivity && m.activity.follow && !m.activity.pending && m.activity.follower != nil {
		m.activity.pending = true
		cmds = append(cmds, followActivityCmd(m.activity.follower))
	}

	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// renderMain renders the signed-in screen.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabBar())
	b.WriteString("\n")
	b.WriteString(m.withToasts(m.renderContent))
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())

	return b.String()
}

// renderContent renders the active tab at the given width.
func (m Model) renderContent(width int) string {
	switch m.tab {
	case TabProjects:
		return m.renderProjects(width)
	case TabUsers:
		return m.renderUsers(width)
	case TabRoles:
		return m.renderRoles(width)
	case TabActivity:
		return m.renderActivity(width)
	default:
		return ""
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type hubChangedMsg struct{}

type loadedMsg struct {
	tab Tab
	err error
}

type permissionsMsg struct {
	roleID string
	err    error
}

type formResultMsg struct {
	err error
}

type archiveResultMsg struct {
	id   string
	name string
	err  error
}

type actionResultMsg struct {
	err error
}

type assignUsersMsg struct {
	roleID string
	err    error
}

type loggedOutMsg struct {
	err error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// waitForHubCmd blocks until the hub reports a change.
func waitForHubCmd(ctx context.Context, hub *notify.Hub) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-hub.Changes():
			return hubChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func loadCmd(tab Tab, load func() error) tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{tab: tab, err: load()}
	}
}

func logoutCmd(ctx context.Context, sess SessionService) tea.Cmd {
	return func() tea.Msg {
		return loggedOutMsg{err: sess.Logout(ctx)}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
