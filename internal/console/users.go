package console

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/five82/foreman/internal/api"
)

// User is one row of the users view.
type User struct {
	ID     string
	Name   string
	Email  string
	RoleID string
}

// Role is a named permission set.
type Role struct {
	ID          string
	Name        string
	Permissions []string
}

// UserForm is the invite form.
type UserForm struct {
	Name   string `validate:"max=200"`
	Email  string `validate:"required,email"`
	RoleID string
}

func userFrom(obj map[string]any) User {
	u := User{
		ID:     idOf(obj),
		Name:   api.String(obj, "name", "full_name", "username"),
		Email:  api.String(obj, "email"),
		RoleID: api.String(obj, "role_id", "roleId"),
	}
	if u.RoleID == "" {
		if role := api.Object(obj["role"]); role != nil {
			u.RoleID = idOf(role)
		} else {
			u.RoleID = api.Scalar(obj["role"])
		}
	}
	return u
}

func roleFrom(obj map[string]any) Role {
	return Role{
		ID:          idOf(obj),
		Name:        api.String(obj, "name", "title"),
		Permissions: api.Strings(obj["permissions"]),
	}
}

func rolesFrom(value any) []Role {
	list := api.NormalizeList(value)
	roles := make([]Role, 0, len(list))
	for _, raw := range list {
		if obj := api.Object(raw); obj != nil {
			roles = append(roles, roleFrom(obj))
		}
	}
	return roles
}

// Users is the users view. Its role list only feeds the role selector.
type Users struct {
	deps Deps
	gen  generation

	mu    sync.RWMutex
	items []User
	roles []Role
}

// NewUsers builds an empty users view.
func NewUsers(deps Deps) *Users {
	return &Users{deps: deps}
}

// Items returns a copy of the user list.
func (u *Users) Items() []User {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]User, len(u.items))
	copy(out, u.items)
	return out
}

// Roles returns a copy of the role selector options.
func (u *Users) Roles() []Role {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]Role, len(u.roles))
	copy(out, u.roles)
	return out
}

// RoleName resolves a role id against the loaded roles, falling back to the id.
func (u *Users) RoleName(id string) string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	for _, r := range u.roles {
		if r.ID == id && r.Name != "" {
			return r.Name
		}
	}
	return id
}

// Leave abandons in-flight loads.
func (u *Users) Leave() {
	u.gen.next()
}

// Load fetches users and roles concurrently. A roles failure is ignored and
// leaves the previous role list in place.
func (u *Users) Load(ctx context.Context) error {
	gen := u.gen.next()

	var (
		users    []User
		roles    []Role
		rolesErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		value, err := api.Probe(gctx, u.deps.Client, api.ListUsers())
		if err != nil {
			return err
		}
		list := api.NormalizeList(value)
		users = make([]User, 0, len(list))
		for _, raw := range list {
			if obj := api.Object(raw); obj != nil {
				users = append(users, userFrom(obj))
			}
		}
		return nil
	})
	g.Go(func() error {
		value, err := api.Probe(gctx, u.deps.Client, api.ListRoles())
		if err != nil {
			rolesErr = err
			return nil
		}
		roles = rolesFrom(value)
		return nil
	})
	err := g.Wait()

	if u.gen.current() != gen {
		return ErrStale
	}
	if err != nil {
		u.deps.failure("Could not load users", err)
		return fmt.Errorf("load users: %w", err)
	}
	if rolesErr != nil {
		u.deps.logger().Debug("roles unavailable for selector", slog.Any("error", rolesErr))
	}

	u.mu.Lock()
	u.items = users
	if rolesErr == nil {
		u.roles = roles
	}
	u.mu.Unlock()
	return nil
}

// Invite validates form and invites the user. The new user is prepended.
func (u *Users) Invite(ctx context.Context, form UserForm) (User, error) {
	form = UserForm{
		Name:   strings.TrimSpace(form.Name),
		Email:  strings.TrimSpace(form.Email),
		RoleID: strings.TrimSpace(form.RoleID),
	}
	if err := check(form); err != nil {
		return User{}, err
	}
	body := map[string]any{"email": form.Email}
	if form.Name != "" {
		body["name"] = form.Name
	}
	if form.RoleID != "" {
		body["role_id"] = form.RoleID
	}
	value, err := api.Probe(ctx, u.deps.Client, api.InviteUser(body), u.deps.probeOptions()...)
	if err != nil {
		u.deps.failure("Could not invite user", err)
		return User{}, fmt.Errorf("invite user: %w", err)
	}

	invited := User{Name: form.Name, Email: form.Email, RoleID: form.RoleID}
	if obj := entityFrom(value, "user"); obj != nil {
		merged := userFrom(obj)
		invited.ID = merged.ID
		if merged.Email != "" {
			invited = merged
		}
		if invited.RoleID == "" {
			invited.RoleID = form.RoleID
		}
	}
	u.mu.Lock()
	u.items = append([]User{invited}, u.items...)
	u.mu.Unlock()
	u.deps.success("Invitation sent", invited.Email)
	return invited, nil
}

// UpdateRole changes a user's role from the users list.
func (u *Users) UpdateRole(ctx context.Context, userID, roleID string) (User, error) {
	return u.setRole(ctx, userID, roleID, api.UpdateUserRole)
}

// AssignRole assigns a role to a user from the roles screen. It differs from
// UpdateRole only in which routes are tried first.
func (u *Users) AssignRole(ctx context.Context, userID, roleID string) (User, error) {
	return u.setRole(ctx, userID, roleID, api.AssignRole)
}

func (u *Users) setRole(ctx context.Context, userID, roleID string, routes func(userID, roleID string) []api.Candidate) (User, error) {
	userID = strings.TrimSpace(userID)
	roleID = strings.TrimSpace(roleID)
	fields := map[string]string{}
	if userID == "" {
		fields["user"] = "User is required"
	}
	if roleID == "" {
		fields["role"] = "Role is required"
	}
	if len(fields) > 0 {
		return User{}, &ValidationError{Fields: fields}
	}

	value, err := api.Probe(ctx, u.deps.Client, routes(userID, roleID), u.deps.probeOptions()...)
	if err != nil {
		u.deps.failure("Could not update role", err)
		return User{}, fmt.Errorf("set role of user %s: %w", userID, err)
	}

	updated, _ := u.find(userID)
	updated.ID = userID
	if obj := entityFrom(value, "user"); obj != nil && api.String(obj, "email") != "" {
		updated = userFrom(obj)
		updated.ID = userID
	}
	updated.RoleID = roleID
	u.replace(updated)
	u.deps.success("Role updated", u.RoleName(roleID))
	return updated, nil
}

func (u *Users) find(id string) (User, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	for _, item := range u.items {
		if item.ID == id {
			return item, true
		}
	}
	return User{}, false
}

func (u *Users) replace(user User) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, item := range u.items {
		if item.ID == user.ID {
			u.items[i] = user
			return
		}
	}
	u.items = append([]User{user}, u.items...)
}
