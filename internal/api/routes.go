package api

import (
	"net/http"
	"net/url"
)

// Candidate route tables. The backend's exact route surface is not fixed, so
// each logical operation lists the routes to try in priority order.

// ListProjects lists projects.
func ListProjects() []Candidate {
	return []Candidate{
		{Method: http.MethodGet, Path: "/projects"},
		{Method: http.MethodGet, Path: "/api/projects"},
	}
}

// CreateProject creates a project.
func CreateProject(body any) []Candidate {
	return []Candidate{
		{Method: http.MethodPost, Path: "/projects", Body: body, Mutating: true},
	}
}

// UpdateProject replaces a project's editable fields.
func UpdateProject(id string, body any) []Candidate {
	return []Candidate{
		{Method: http.MethodPut, Path: "/projects/" + seg(id), Body: body, Mutating: true},
	}
}

// ArchiveProject marks a project archived without deleting it.
func ArchiveProject(id string) []Candidate {
	return []Candidate{
		{Method: http.MethodPatch, Path: "/projects/" + seg(id), Body: map[string]any{"status": "archived"}, Mutating: true},
	}
}

// DeleteProject deletes a project. This cannot be undone.
func DeleteProject(id string) []Candidate {
	return []Candidate{
		{Method: http.MethodDelete, Path: "/projects/" + seg(id), Mutating: true},
	}
}

// ArchiveOrDeleteProject archives, falling back to delete.
func ArchiveOrDeleteProject(id string) []Candidate {
	return append(ArchiveProject(id), DeleteProject(id)...)
}

// ListUsers lists users.
func ListUsers() []Candidate {
	return []Candidate{
		{Method: http.MethodGet, Path: "/users"},
		{Method: http.MethodGet, Path: "/api/users"},
	}
}

// InviteUser invites (or directly creates) a user.
func InviteUser(body any) []Candidate {
	return []Candidate{
		{Method: http.MethodPost, Path: "/users/invite", Body: body, Mutating: true},
		{Method: http.MethodPost, Path: "/invite", Body: body, Mutating: true},
		{Method: http.MethodPost, Path: "/users", Body: body, Mutating: true},
	}
}

// UpdateUserRole changes the role of a user from the users list.
func UpdateUserRole(userID, roleID string) []Candidate {
	body := roleBody(roleID)
	return []Candidate{
		{Method: http.MethodPut, Path: "/users/" + seg(userID) + "/role", Body: body, Mutating: true},
		{Method: http.MethodPatch, Path: "/users/" + seg(userID), Body: body, Mutating: true},
		{Method: http.MethodPost, Path: "/users/" + seg(userID) + "/roles", Body: body, Mutating: true},
	}
}

// ListRoles lists roles.
func ListRoles() []Candidate {
	return []Candidate{
		{Method: http.MethodGet, Path: "/roles"},
		{Method: http.MethodGet, Path: "/api/roles"},
	}
}

// RolePermissions fetches the permissions of a role.
func RolePermissions(roleID string) []Candidate {
	return []Candidate{
		{Method: http.MethodGet, Path: "/roles/" + seg(roleID) + "/permissions"},
		{Method: http.MethodGet, Path: "/roles/" + seg(roleID)},
		{Method: http.MethodGet, Path: "/api/roles/" + seg(roleID) + "/permissions"},
	}
}

// SaveRolePermissions stores the full permission set of a role.
func SaveRolePermissions(roleID string, permissions []string) []Candidate {
	if permissions == nil {
		permissions = []string{}
	}
	body := map[string]any{"permissions": permissions}
	return []Candidate{
		{Method: http.MethodPut, Path: "/roles/" + seg(roleID) + "/permissions", Body: body, Mutating: true},
		{Method: http.MethodPatch, Path: "/roles/" + seg(roleID), Body: body, Mutating: true},
	}
}

// AssignRole assigns a role to a user from the roles screen.
func AssignRole(userID, roleID string) []Candidate {
	body := roleBody(roleID)
	return []Candidate{
		{Method: http.MethodPost, Path: "/users/" + seg(userID) + "/roles", Body: body, Mutating: true},
		{Method: http.MethodPut, Path: "/users/" + seg(userID) + "/role", Body: body, Mutating: true},
		{Method: http.MethodPatch, Path: "/users/" + seg(userID), Body: body, Mutating: true},
	}
}

// Login exchanges credentials for a token. The last route takes form-style
// field names.
func Login(email, password string) []Candidate {
	body := map[string]any{"email": email, "password": password}
	return []Candidate{
		{Method: http.MethodPost, Path: "/auth/login", Body: body},
		{Method: http.MethodPost, Path: "/login", Body: body},
		{Method: http.MethodPost, Path: "/token", Body: map[string]any{"username": email, "password": password}},
	}
}

// Register creates an account.
func Register(name, email, password string) []Candidate {
	body := map[string]any{"name": name, "email": email, "password": password}
	return []Candidate{
		{Method: http.MethodPost, Path: "/auth/register", Body: body, Mutating: true},
		{Method: http.MethodPost, Path: "/register", Body: body, Mutating: true},
		{Method: http.MethodPost, Path: "/auth/signup", Body: body, Mutating: true},
	}
}

// CurrentProfile fetches the authenticated principal.
func CurrentProfile() []Candidate {
	return []Candidate{
		{Method: http.MethodGet, Path: "/auth/me"},
		{Method: http.MethodGet, Path: "/me"},
		{Method: http.MethodGet, Path: "/users/me"},
		{Method: http.MethodGet, Path: "/api/me"},
	}
}

func roleBody(roleID string) map[string]any {
	return map[string]any{"role_id": roleID}
}

func seg(id string) string {
	return url.PathEscape(id)
}
