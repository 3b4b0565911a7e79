package console

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/five82/foreman/internal/api"
)

// DefaultPermissions is the permission catalog offered even when the backend
// does not enumerate one.
var DefaultPermissions = []string{
	"projects.view",
	"projects.edit",
	"users.view",
	"users.edit",
	"users.invite",
	"roles.view",
	"roles.edit",
}

// Permission is one row of a role's permission editor.
type Permission struct {
	Key     string
	Granted bool
}

// Roles is the roles view. Permission edits stay local until SavePermissions.
type Roles struct {
	deps Deps
	gen  generation

	mu      sync.RWMutex
	items   []Role
	working map[string]map[string]bool
	catalog []string
}

// NewRoles builds an empty roles view.
func NewRoles(deps Deps) *Roles {
	return &Roles{
		deps:    deps,
		working: make(map[string]map[string]bool),
		catalog: slices.Clone(DefaultPermissions),
	}
}

// Items returns a copy of the role list.
func (r *Roles) Items() []Role {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Role, len(r.items))
	for i, role := range r.items {
		role.Permissions = slices.Clone(role.Permissions)
		out[i] = role
	}
	return out
}

// Leave abandons in-flight loads and discards unsaved edits.
func (r *Roles) Leave() {
	r.gen.next()
	r.mu.Lock()
	r.working = make(map[string]map[string]bool)
	r.mu.Unlock()
}

// Load replaces the role list.
func (r *Roles) Load(ctx context.Context) error {
	gen := r.gen.next()
	value, err := api.Probe(ctx, r.deps.Client, api.ListRoles())
	if r.gen.current() != gen {
		return ErrStale
	}
	if err != nil {
		r.deps.failure("Could not load roles", err)
		return fmt.Errorf("load roles: %w", err)
	}

	roles := rolesFrom(value)
	r.mu.Lock()
	r.items = roles
	r.working = make(map[string]map[string]bool)
	for _, role := range roles {
		r.extendCatalog(role.Permissions)
	}
	r.mu.Unlock()
	return nil
}

// LoadPermissions fetches the permission set of roleID and resets any unsaved
// edits for it.
func (r *Roles) LoadPermissions(ctx context.Context, roleID string) ([]Permission, error) {
	gen := r.gen.current()
	value, err := api.Probe(ctx, r.deps.Client, api.RolePermissions(roleID))
	if r.gen.current() != gen {
		return nil, ErrStale
	}
	if err != nil {
		r.deps.failure("Could not load permissions", err)
		return nil, fmt.Errorf("load permissions of role %s: %w", roleID, err)
	}

	keys := permissionsFrom(value)
	r.mu.Lock()
	r.extendCatalog(keys)
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	r.working[roleID] = set
	for i, role := range r.items {
		if role.ID == roleID {
			r.items[i].Permissions = slices.Clone(keys)
		}
	}
	r.mu.Unlock()
	return r.Permissions(roleID), nil
}

// permissionsFrom accepts a bare list, a list wrapper, or a role object with
// a "permissions" field.
func permissionsFrom(value any) []string {
	if obj := api.Object(value); obj != nil {
		if inner := api.Object(obj["data"]); inner != nil {
			obj = inner
		}
		if perms, ok := obj["permissions"]; ok {
			return api.Strings(perms)
		}
	}
	return api.Strings(api.NormalizeList(value))
}

// Permissions returns the editor rows for roleID: the catalog in order
// followed by any extra keys, each marked with its unsaved state.
func (r *Roles) Permissions(roleID string) []Permission {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.workingSet(roleID)
	out := make([]Permission, 0, len(r.catalog))
	for _, key := range r.catalog {
		out = append(out, Permission{Key: key, Granted: set[key]})
	}
	return out
}

// TogglePermission flips one permission locally and reports the new state.
// Blank keys are ignored.
func (r *Roles) TogglePermission(roleID, key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.working[roleID]
	if !ok {
		set = r.workingSet(roleID)
		r.working[roleID] = set
	}
	set[key] = !set[key]
	r.extendCatalog([]string{key})
	return set[key]
}

// SavePermissions stores the edited permission set of roleID.
func (r *Roles) SavePermissions(ctx context.Context, roleID string) error {
	r.mu.RLock()
	set := r.workingSet(roleID)
	granted := make([]string, 0, len(set))
	for key, on := range set {
		if on {
			granted = append(granted, key)
		}
	}
	r.mu.RUnlock()
	sort.Strings(granted)

	if _, err := api.Probe(ctx, r.deps.Client, api.SaveRolePermissions(roleID, granted), r.deps.probeOptions()...); err != nil {
		r.deps.failure("Could not save permissions", err)
		return fmt.Errorf("save permissions of role %s: %w", roleID, err)
	}

	r.mu.Lock()
	name := roleID
	for i, role := range r.items {
		if role.ID == roleID {
			r.items[i].Permissions = slices.Clone(granted)
			if role.Name != "" {
				name = role.Name
			}
		}
	}
	r.mu.Unlock()
	r.deps.success("Permissions saved", name)
	return nil
}

// workingSet returns the edited set for roleID, seeded from the loaded role
// when there are no edits yet. Callers hold r.mu.
func (r *Roles) workingSet(roleID string) map[string]bool {
	if set, ok := r.working[roleID]; ok {
		return set
	}
	set := make(map[string]bool)
	for _, role := range r.items {
		if role.ID == roleID {
			for _, k := range role.Permissions {
				set[k] = true
			}
		}
	}
	return set
}

// extendCatalog appends unknown keys. Callers hold r.mu.
func (r *Roles) extendCatalog(keys []string) {
	for _, k := range keys {
		if k != "" && !slices.Contains(r.catalog, k) {
			r.catalog = append(r.catalog, k)
		}
	}
}
