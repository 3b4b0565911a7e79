package session

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/foreman/internal/api"
	"github.com/five82/foreman/internal/testutil/fakebackend"
	"github.com/five82/foreman/internal/tokenstore"
)

// newManager wires a client whose token source is the manager itself, the
// same way the app does.
func newManager(t *testing.T, srv *fakebackend.Server, store tokenstore.Store) *Manager {
	t.Helper()
	var mgr *Manager
	client, err := api.NewClient(srv.URL, api.WithTokenSource(func() string { return mgr.Token() }))
	require.NoError(t, err)
	mgr = NewManager(client, store)
	return mgr
}

type failingStore struct {
	tokenstore.MemoryStore
}

func (*failingStore) Set(context.Context, string) error { return errors.New("disk full") }

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestInit_NoStoredTokenIsAnonymous(t *testing.T) {
	srv := fakebackend.New(t)
	m := newManager(t, srv, &tokenstore.MemoryStore{})
	assert.Equal(t, StateInitializing, m.State())

	require.NoError(t, m.Init(context.Background()))

	snap := m.Snapshot()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.False(t, snap.HasCredential)
	assert.Empty(t, srv.Calls(), "no profile fetch without a credential")
}

func TestInit_StoredTokenAuthenticatesEvenWhenProfileFails(t *testing.T) {
	srv := fakebackend.New(t)
	store := &tokenstore.MemoryStore{}
	require.NoError(t, store.Set(context.Background(), "persisted"))
	m := newManager(t, srv, store)

	require.NoError(t, m.Init(context.Background()))

	snap := m.Snapshot()
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.True(t, snap.HasCredential)
	assert.Nil(t, snap.Profile)
	assert.Equal(t, "persisted", m.Token())
	assert.Equal(t, []string{"GET /auth/me", "GET /me", "GET /users/me", "GET /api/me"}, srv.Calls())
}

func TestInit_StoredTokenLoadsProfile(t *testing.T) {
	srv := fakebackend.New(t)
	srv.Reply(http.MethodGet, "/me", http.StatusOK, map[string]any{"user": map[string]any{"name": "Ada", "email": "ada@example.com"}})
	store := &tokenstore.MemoryStore{}
	require.NoError(t, store.Set(context.Background(), "persisted"))
	m := newManager(t, srv, store)

	require.NoError(t, m.Init(context.Background()))

	snap := m.Snapshot()
	assert.Equal(t, "Ada", snap.DisplayName())
	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "Bearer persisted", reqs[1].Auth)
}

func TestLogin_FallsBackAndPersists(t *testing.T) {
	srv := fakebackend.New(t)
	srv.Reply(http.MethodPost, "/login", http.StatusOK, map[string]any{"token": "t1"})
	srv.Reply(http.MethodGet, "/auth/me", http.StatusOK, map[string]any{"email": "ada@example.com"})
	store := &tokenstore.MemoryStore{}
	m := newManager(t, srv, store)
	require.NoError(t, m.Init(context.Background()))

	require.NoError(t, m.Login(context.Background(), "ada@example.com", "pw"))

	assert.Equal(t, []string{"POST /auth/login", "POST /login", "GET /auth/me"}, srv.Calls())
	reqs := srv.Requests()
	assert.Equal(t, map[string]any{"email": "ada@example.com", "password": "pw"}, reqs[1].Body)
	assert.Empty(t, reqs[1].Auth, "login goes out without a credential")
	assert.Equal(t, "Bearer t1", reqs[2].Auth, "profile fetch uses the new credential")

	stored, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t1", stored)

	snap := m.Snapshot()
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.Equal(t, "ada@example.com", snap.DisplayName())
}

func TestLogin_TokenRouteUsesUsernameField(t *testing.T) {
	srv := fakebackend.New(t)
	srv.Reply(http.MethodPost, "/token", http.StatusOK, map[string]any{"access_token": "t2", "user": map[string]any{"name": "Grace"}})
	m := newManager(t, srv, &tokenstore.MemoryStore{})

	require.NoError(t, m.Login(context.Background(), "grace@example.com", "pw"))

	reqs := srv.Requests()
	require.Len(t, reqs, 3, "user object in the response skips the profile fetch")
	assert.Equal(t, map[string]any{"username": "grace@example.com", "password": "pw"}, reqs[2].Body)
	assert.Equal(t, "Grace", m.Snapshot().DisplayName())
	assert.Equal(t, "t2", m.Token())
}

func TestLogin_TokenFieldPriority(t *testing.T) {
	tests := []struct {
		body any
		want string
	}{
		{map[string]any{"access_token": "a", "token": "b", "jwt": "c"}, "a"},
		{map[string]any{"access_token": "", "token": "b", "jwt": "c"}, "b"},
		{map[string]any{"jwt": "c"}, "c"},
		{map[string]any{"token": 7}, ""},
		{"plain text", ""},
		{nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractToken(tt.body), "%v", tt.body)
	}
}

func TestLogin_SuccessWithoutTokenIsAnError(t *testing.T) {
	srv := fakebackend.New(t)
	for _, path := range []string{"/auth/login", "/login", "/token"} {
		srv.Reply(http.MethodPost, path, http.StatusOK, map[string]any{"ok": true})
	}
	store := &tokenstore.MemoryStore{}
	m := newManager(t, srv, store)
	require.NoError(t, m.Init(context.Background()))

	err := m.Login(context.Background(), "a@example.com", "pw")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Len(t, srv.Calls(), 3)
	assert.Equal(t, StateAnonymous, m.State())
	stored, _ := store.Get(context.Background())
	assert.Empty(t, stored)
}

func TestLogin_RejectedCredentialsSurfaceServerMessage(t *testing.T) {
	srv := fakebackend.New(t)
	for _, path := range []string{"/auth/login", "/login", "/token"} {
		srv.Reply(http.MethodPost, path, http.StatusUnauthorized, map[string]any{"detail": "Invalid credentials"})
	}
	m := newManager(t, srv, &tokenstore.MemoryStore{})

	err := m.Login(context.Background(), "a@example.com", "wrong")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid credentials", authErr.Message)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	assert.Equal(t, "login", authErr.Op)
	assert.Empty(t, m.Token())
}

func TestLogin_NetworkFailure(t *testing.T) {
	srv := fakebackend.New(t)
	m := newManager(t, srv, &tokenstore.MemoryStore{})
	srv.Close()

	err := m.Login(context.Background(), "a@example.com", "pw")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Message, "Network error")
	assert.Zero(t, authErr.Status)
}

func TestLogin_PersistFailureStillAuthenticates(t *testing.T) {
	srv := fakebackend.New(t)
	srv.Reply(http.MethodPost, "/auth/login", http.StatusOK, map[string]any{"token": "t1", "user": map[string]any{"name": "Ada"}})
	m := newManager(t, srv, &failingStore{})

	require.NoError(t, m.Login(context.Background(), "a@example.com", "pw"))
	assert.Equal(t, StateAuthenticated, m.State())
	assert.Equal(t, "t1", m.Token())
}

func TestRegister_WithoutTokenRequiresSignIn(t *testing.T) {
	srv := fakebackend.New(t)
	srv.Reply(http.MethodPost, "/register", http.StatusCreated, map[string]any{"id": 9})
	m := newManager(t, srv, &tokenstore.MemoryStore{})
	require.NoError(t, m.Init(context.Background()))

	authenticated, err := m.Register(context.Background(), "Ada", "ada@example.com", "pw")

	require.NoError(t, err)
	assert.False(t, authenticated)
	assert.Equal(t, StateAnonymous, m.State())
	assert.Equal(t, []string{"POST /auth/register", "POST /register"}, srv.Calls())
	assert.Equal(t, map[string]any{"name": "Ada", "email": "ada@example.com", "password": "pw"}, srv.Requests()[1].Body)
}

func TestRegister_WithTokenAuthenticates(t *testing.T) {
	srv := fakebackend.New(t)
	srv.Reply(http.MethodPost, "/auth/register", http.StatusOK, map[string]any{"jwt": "t3", "user": map[string]any{"name": "Ada"}})
	store := &tokenstore.MemoryStore{}
	m := newManager(t, srv, store)

	authenticated, err := m.Register(context.Background(), "Ada", "ada@example.com", "pw")

	require.NoError(t, err)
	assert.True(t, authenticated)
	assert.Equal(t, StateAuthenticated, m.State())
	stored, _ := store.Get(context.Background())
	assert.Equal(t, "t3", stored)
}

func TestRegister_StrictStopsAfterRejection(t *testing.T) {
	srv := fakebackend.New(t)
	srv.Reply(http.MethodPost, "/auth/register", http.StatusConflict, map[string]any{"message": "Email taken"})
	srv.Reply(http.MethodPost, "/register", http.StatusCreated, map[string]any{"token": "t"})

	var mgr *Manager
	client, err := api.NewClient(srv.URL, api.WithTokenSource(func() string { return mgr.Token() }))
	require.NoError(t, err)
	mgr = NewManager(client, &tokenstore.MemoryStore{}, WithStrictMutations(true))

	_, err = mgr.Register(context.Background(), "Ada", "ada@example.com", "pw")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Email taken", authErr.Message)
	assert.Equal(t, []string{"POST /auth/register"}, srv.Calls())
}

func TestLogout_ClearsEverythingWithoutNetwork(t *testing.T) {
	srv := fakebackend.New(t)
	srv.Reply(http.MethodPost, "/auth/login", http.StatusOK, map[string]any{"token": "t1", "user": map[string]any{"name": "Ada"}})
	store := &tokenstore.MemoryStore{}
	m := newManager(t, srv, store)
	require.NoError(t, m.Login(context.Background(), "a@example.com", "pw"))
	srv.Reset()

	require.NoError(t, m.Logout(context.Background()))

	snap := m.Snapshot()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.False(t, snap.HasCredential)
	assert.Nil(t, snap.Profile)
	assert.Empty(t, m.Token())
	stored, _ := store.Get(context.Background())
	assert.Empty(t, stored)
	assert.Empty(t, srv.Calls())
}

func TestSnapshot_IsACopy(t *testing.T) {
	srv := fakebackend.New(t)
	srv.Reply(http.MethodPost, "/auth/login", http.StatusOK, map[string]any{"token": "t1", "user": map[string]any{"name": "Ada"}})
	m := newManager(t, srv, &tokenstore.MemoryStore{})
	require.NoError(t, m.Login(context.Background(), "a@example.com", "pw"))

	snap := m.Snapshot()
	snap.Profile["name"] = "Mallory"

	assert.Equal(t, "Ada", m.Snapshot().DisplayName())
}

func TestTokenOnNilManager(t *testing.T) {
	var m *Manager
	assert.Empty(t, m.Token())
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, jwt.MapClaims{
		"sub":      "42",
		"email":    "ada@example.com",
		"username": "ada",
		"role":     "admin",
		"exp":      exp.Unix(),
	})

	c := ParseClaims(token)
	require.NotNil(t, c)
	assert.Equal(t, "42", c.Subject)
	assert.Equal(t, "ada@example.com", c.Email)
	assert.Equal(t, "ada", c.Name)
	assert.Equal(t, "admin", c.Role)
	assert.True(t, c.ExpiresAt.Equal(exp))
	assert.False(t, c.Expired(time.Now()))
	assert.True(t, c.Expired(exp.Add(time.Second)))

	assert.Nil(t, ParseClaims("opaque-token"))
	assert.Nil(t, ParseClaims(""))

	var none *Claims
	assert.False(t, none.Expired(time.Now()))
}

func TestDisplayName_FallsBackToClaims(t *testing.T) {
	snap := Snapshot{Claims: &Claims{Email: "ada@example.com"}}
	assert.Equal(t, "ada@example.com", snap.DisplayName())

	snap = Snapshot{Claims: &Claims{Subject: "42"}}
	assert.Equal(t, "42", snap.DisplayName())

	assert.Empty(t, Snapshot{}.DisplayName())
}

func TestInit_StoredJWTExposesClaims(t *testing.T) {
	srv := fakebackend.New(t)
	store := &tokenstore.MemoryStore{}
	require.NoError(t, store.Set(context.Background(), signedToken(t, jwt.MapClaims{"sub": "7", "name": "Lin"})))
	m := newManager(t, srv, store)

	require.NoError(t, m.Init(context.Background()))

	snap := m.Snapshot()
	require.NotNil(t, snap.Claims)
	assert.Equal(t, "Lin", snap.DisplayName())
}
