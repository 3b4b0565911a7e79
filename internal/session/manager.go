package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"

	"github.com/five82/foreman/internal/api"
	"github.com/five82/foreman/internal/tokenstore"
)

// State is the lifecycle state of a session.
type State string

const (
	StateInitializing  State = "initializing"
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
)

// ErrNoToken marks a 2xx auth response that carried no usable token.
var ErrNoToken = errors.New("response did not include a token")

// AuthError is returned by Login and Register. Transport failures, rejected
// credentials and token-less responses all surface as this one type.
type AuthError struct {
	Op      string
	Message string
	Status  int
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// tokenFields are checked in order when extracting a token.
var tokenFields = []string{"access_token", "token", "jwt"}

// ExtractToken returns the first non-empty token field of an auth response.
func ExtractToken(v any) string {
	obj := api.Object(v)
	for _, key := range tokenFields {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Snapshot is a copy of the session at a point in time.
type Snapshot struct {
	State         State
	HasCredential bool
	Profile       map[string]any
	Claims        *Claims
}

// DisplayName picks the best label for the signed-in principal: profile name
// or email first, then token claims.
func (s Snapshot) DisplayName() string {
	if name := api.String(s.Profile, "name", "full_name", "username", "email"); name != "" {
		return name
	}
	if s.Claims != nil {
		for _, v := range []string{s.Claims.Name, s.Claims.Email, s.Claims.Subject} {
			if v != "" {
				return v
			}
		}
	}
	return ""
}

// Manager owns the live credential and the derived profile.
type Manager struct {
	client api.Doer
	store  tokenstore.Store
	logger *slog.Logger
	strict bool

	mu      sync.RWMutex
	state   State
	token   string
	profile map[string]any
	claims  *Claims
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithStrictMutations applies api.WithStrictMutations to registration.
func WithStrictMutations(strict bool) Option {
	return func(m *Manager) { m.strict = strict }
}

// NewManager builds a Manager in the initializing state.
func NewManager(client api.Doer, store tokenstore.Store, opts ...Option) *Manager {
	m := &Manager{
		client: client,
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:  StateInitializing,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns the live credential, or "". Safe on a nil Manager so it can
// back an api.TokenSource built before the Manager exists.
func (m *Manager) Token() string {
	if m == nil {
		return ""
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Snapshot returns a copy of the session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		State:         m.state,
		HasCredential: m.token != "",
	}
	if m.profile != nil {
		snap.Profile = maps.Clone(m.profile)
	}
	if m.claims != nil {
		c := *m.claims
		snap.Claims = &c
	}
	return snap
}

// Init reads any persisted credential. Without one the session becomes
// anonymous; with one it becomes authenticated after a best-effort profile
// fetch, whether or not that fetch succeeds.
func (m *Manager) Init(ctx context.Context) error {
	token, err := m.store.Get(ctx)
	if err != nil {
		m.setAnonymous()
		m.logger.Warn("stored credential unreadable", slog.Any("error", err))
		return fmt.Errorf("read stored credential: %w", err)
	}
	if token == "" {
		m.setAnonymous()
		m.logger.Info("session anonymous")
		return nil
	}

	m.mu.Lock()
	m.token = token
	m.claims = ParseClaims(token)
	m.mu.Unlock()

	m.fetchProfileBestEffort(ctx)
	m.setAuthenticated()
	return nil
}

// Login tries the known auth routes in order. The first response carrying a
// token wins; its token is persisted and the session becomes authenticated.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	res, err := api.ProbeResult(ctx, m.client, api.Login(email, password), api.WithAccept(requireToken))
	if err != nil {
		m.logger.Warn("login failed", slog.Any("error", err))
		return authError("login", err)
	}
	m.logger.Info("login succeeded", slog.String("route", res.Candidate.Method+" "+res.Candidate.Path))
	m.establish(ctx, ExtractToken(res.Value), res.Value)
	return nil
}

// Register tries the known registration routes in order. It reports whether
// the response also established a session; when it did not, the caller should
// send the user to sign in.
func (m *Manager) Register(ctx context.Context, name, email, password string) (bool, error) {
	res, err := api.ProbeResult(ctx, m.client, api.Register(name, email, password), api.WithStrictMutations(m.strict))
	if err != nil {
		m.logger.Warn("register failed", slog.Any("error", err))
		return false, authError("register", err)
	}
	m.logger.Info("register succeeded", slog.String("route", res.Candidate.Method+" "+res.Candidate.Path))

	token := ExtractToken(res.Value)
	if token == "" {
		return false, nil
	}
	m.establish(ctx, token, res.Value)
	return true, nil
}

// Logout drops the credential and profile immediately. It never calls the
// backend; the returned error only reports a failure to clear persistence.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.profile = nil
	m.claims = nil
	m.state = StateAnonymous
	m.mu.Unlock()
	m.logger.Info("session anonymous")

	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear stored credential: %w", err)
	}
	return nil
}

// RefreshProfile fetches the current profile. A failure leaves the previous
// profile in place.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	// A 401 ends the search; later candidates would only mask it with 404s.
	value, err := api.Probe(ctx, m.client, api.CurrentProfile(), api.WithStopOn(api.IsUnauthorized))
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}
	profile := profileFrom(value)
	if profile == nil {
		return errors.New("fetch profile: response was not an object")
	}
	m.mu.Lock()
	m.profile = profile
	m.mu.Unlock()
	return nil
}

func (m *Manager) establish(ctx context.Context, token string, response any) {
	m.mu.Lock()
	m.token = token
	m.claims = ParseClaims(token)
	m.profile = nil
	if user := api.Object(api.Object(response)["user"]); user != nil {
		m.profile = maps.Clone(user)
	}
	hasProfile := m.profile != nil
	m.state = StateAuthenticated
	m.mu.Unlock()
	m.logger.Info("session authenticated")

	if err := m.store.Set(ctx, token); err != nil {
		m.logger.Warn("persist credential failed", slog.Any("error", err))
	}
	if !hasProfile {
		m.fetchProfileBestEffort(ctx)
	}
}

func (m *Manager) fetchProfileBestEffort(ctx context.Context) {
	if err := m.RefreshProfile(ctx); err != nil {
		m.logger.Info("profile unavailable", slog.Any("error", err))
	}
}

func (m *Manager) setAnonymous() {
	m.mu.Lock()
	m.token = ""
	m.profile = nil
	m.claims = nil
	m.state = StateAnonymous
	m.mu.Unlock()
}

func (m *Manager) setAuthenticated() {
	m.mu.Lock()
	m.state = StateAuthenticated
	m.mu.Unlock()
	m.logger.Info("session authenticated")
}

func requireToken(v any) error {
	if ExtractToken(v) == "" {
		return ErrNoToken
	}
	return nil
}

func authError(op string, err error) *AuthError {
	return &AuthError{
		Op:      op,
		Message: api.Message(err),
		Status:  api.StatusOf(err),
		Err:     err,
	}
}

// profileFrom accepts either a bare profile object or one wrapped in "user"
// or "data".
func profileFrom(v any) map[string]any {
	obj := api.Object(v)
	if obj == nil {
		return nil
	}
	for _, key := range []string{"user", "data"} {
		if inner := api.Object(obj[key]); inner != nil {
			return maps.Clone(inner)
		}
	}
	return maps.Clone(obj)
}
