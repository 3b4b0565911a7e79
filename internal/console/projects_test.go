package console

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/foreman/internal/api"
	"github.com/five82/foreman/internal/notify"
	"github.com/five82/foreman/internal/testutil/fakebackend"
)

func seedProjects(t *testing.T, srv *fakebackend.Server, p *Projects) {
	t.Helper()
	srv.Reply(http.MethodGet, "/projects", http.StatusOK, map[string]any{"items": []any{
		map[string]any{"id": 1, "name": "Apollo", "status": "active"},
		map[string]any{"id": 2, "name": "Gemini", "description": "two seats", "status": "paused"},
	}})
	require.NoError(t, p.Load(context.Background()))
	srv.Reset()
}

func TestProjects_LoadNormalizes(t *testing.T) {
	srv := fakebackend.New(t)
	deps, _ := newDeps(t, srv)
	p := NewProjects(deps)
	seedProjects(t, srv, p)

	items := p.Items()
	require.Len(t, items, 2)
	assert.Equal(t, Project{ID: "1", Name: "Apollo", Status: StatusActive}, items[0])
	assert.Equal(t, Project{ID: "2", Name: "Gemini", Description: "two seats", Status: StatusActive}, items[1],
		"unknown status normalizes to active")
}

func TestProjects_LoadFallsBackToAPIPrefix(t *testing.T) {
	srv := fakebackend.New(t)
	srv.Reply(http.MethodGet, "/api/projects", http.StatusOK, []any{map[string]any{"id": "x", "name": "Mercury", "status": "archived"}})
	deps, n := newDeps(t, srv)
	p := NewProjects(deps)

	require.NoError(t, p.Load(context.Background()))

	assert.Equal(t, []string{"GET /projects", "GET /api/projects"}, srv.Calls())
	assert.Equal(t, []Project{{ID: "x", Name: "Mercury", Status: StatusArchived}}, p.Items())
	assert.Empty(t, n.all())
}

func TestProjects_LoadFailureRaisesErrorToast(t *testing.T) {
	srv := fakebackend.New(t)
	srv.Reply(http.MethodGet, "/api/projects", http.StatusInternalServerError, map[string]any{"message": "database down"})
	deps, n := newDeps(t, srv)
	p := NewProjects(deps)

	err := p.Load(context.Background())

	require.Error(t, err)
	errs := n.ofKind(notify.KindError)
	require.Len(t, errs, 1)
	assert.Equal(t, "database down", errs[0].Description)
}

func TestProjects_LeaveDropsInFlightLoad(t *testing.T) {
	srv := fakebackend.New(t)
	deps, _ := newDeps(t, srv)
	p := NewProjects(deps)
	srv.On(http.MethodGet, "/projects", func(*http.Request, map[string]any) (int, any) {
		p.Leave()
		return http.StatusOK, []any{map[string]any{"id": 1, "name": "Late"}}
	})

	err := p.Load(context.Background())

	assert.ErrorIs(t, err, ErrStale)
	assert.Empty(t, p.Items())
}

func TestProjects_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		form    ProjectForm
		wantErr bool
	}{
		{"two characters pass", ProjectForm{Name: "Q2"}, false},
		{"one character fails", ProjectForm{Name: "Q"}, true},
		{"empty fails", ProjectForm{Name: ""}, true},
		{"whitespace only fails", ProjectForm{Name: "   "}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakebackend.New(t)
			srv.Reply(http.MethodPost, "/projects", http.StatusCreated, map[string]any{"id": 10, "name": "Q2", "status": "active"})
			deps, _ := newDeps(t, srv)
			p := NewProjects(deps)

			_, err := p.Create(context.Background(), tt.form)

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, []string{"POST /projects"}, srv.Calls())
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Field("name"))
			assert.Empty(t, srv.Calls(), "validation failures never reach the network")
		})
	}
}

func TestProjects_CreatePrependsAndSendsActiveStatus(t *testing.T) {
	srv := fakebackend.New(t)
	deps, n := newDeps(t, srv)
	p := NewProjects(deps)
	seedProjects(t, srv, p)
	srv.Reply(http.MethodPost, "/projects", http.StatusCreated, map[string]any{"id": 3})

	created, err := p.Create(context.Background(), ProjectForm{Name: " Skylab ", Description: "station"})

	require.NoError(t, err)
	assert.Equal(t, Project{ID: "3", Name: "Skylab", Description: "station", Status: StatusActive}, created)
	assert.Equal(t, map[string]any{"name": "Skylab", "description": "station", "status": "active"}, srv.Requests()[0].Body)
	items := p.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "3", items[0].ID)
	assert.Len(t, n.ofKind(notify.KindSuccess), 1)
}

func TestProjects_UpdateReplacesByID(t *testing.T) {
	srv := fakebackend.New(t)
	deps, _ := newDeps(t, srv)
	p := NewProjects(deps)
	seedProjects(t, srv, p)
	srv.Reply(http.MethodPut, "/projects/{id}", http.StatusOK, map[string]any{"data": map[string]any{"id": 2, "name": "Gemini II", "status": "active"}})

	updated, err := p.Update(context.Background(), "2", ProjectForm{Name: "Gemini II"})

	require.NoError(t, err)
	assert.Equal(t, "Gemini II", updated.Name)
	items := p.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Gemini II", items[1].Name)
	assert.Equal(t, []string{"PUT /projects/2"}, srv.Calls())
}

func TestProjects_UpdateFailureKeepsList(t *testing.T) {
	srv := fakebackend.New(t)
	deps, n := newDeps(t, srv)
	p := NewProjects(deps)
	seedProjects(t, srv, p)
	srv.Reply(http.MethodPut, "/projects/{id}", http.StatusForbidden, map[string]any{"error": "not allowed"})
	before := p.Items()

	_, err := p.Update(context.Background(), "1", ProjectForm{Name: "Renamed"})

	require.Error(t, err)
	assert.Equal(t, before, p.Items())
	errs := n.ofKind(notify.KindError)
	require.Len(t, errs, 1)
	assert.Equal(t, "not allowed", errs[0].Description)
}

func TestProjects_ArchiveViaPatch(t *testing.T) {
	srv := fakebackend.New(t)
	deps, _ := newDeps(t, srv)
	p := NewProjects(deps)
	seedProjects(t, srv, p)
	srv.Reply(http.MethodPatch, "/projects/{id}", http.StatusNoContent, nil)

	require.NoError(t, p.Archive(context.Background(), "1", false))

	assert.Equal(t, []string{"PATCH /projects/1"}, srv.Calls())
	assert.Equal(t, map[string]any{"status": "archived"}, srv.Requests()[0].Body)
	items := p.Items()
	assert.Equal(t, StatusArchived, items[0].Status)
	assert.Equal(t, "Apollo", items[0].Name)
}

func TestProjects_ArchiveRequiresConfirmationBeforeDelete(t *testing.T) {
	srv := fakebackend.New(t)
	deps, n := newDeps(t, srv)
	p := NewProjects(deps)
	seedProjects(t, srv, p)
	srv.Reply(http.MethodDelete, "/projects/{id}", http.StatusNoContent, nil)

	err := p.Archive(context.Background(), "1", false)

	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Equal(t, []string{"PATCH /projects/1"}, srv.Calls(), "no delete without confirmation")
	assert.Len(t, p.Items(), 2)
	require.Len(t, n.all(), 1)
	assert.Equal(t, notify.KindError, n.all()[0].Kind)

	require.NoError(t, p.Delete(context.Background(), "1"))
	assert.Equal(t, []string{"PATCH /projects/1", "DELETE /projects/1"}, srv.Calls())
	items := p.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "2", items[0].ID)
}

func TestProjects_ArchiveRejectionDoesNotOfferDelete(t *testing.T) {
	srv := fakebackend.New(t)
	deps, n := newDeps(t, srv)
	p := NewProjects(deps)
	seedProjects(t, srv, p)
	srv.Reply(http.MethodPatch, "/projects/{id}", http.StatusForbidden, map[string]any{"detail": "not allowed to archive"})
	srv.Reply(http.MethodDelete, "/projects/{id}", http.StatusNoContent, nil)

	err := p.Archive(context.Background(), "1", false)

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrConfirmationRequired))
	assert.Equal(t, http.StatusForbidden, api.StatusOf(err))
	assert.Equal(t, []string{"PATCH /projects/1"}, srv.Calls())
	assert.Len(t, p.Items(), 2)
	errs := n.ofKind(notify.KindError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Could not archive project", errs[0].Title)
	assert.Equal(t, "not allowed to archive", errs[0].Description)
}

func TestProjects_ArchiveFallsBackToDelete(t *testing.T) {
	srv := fakebackend.New(t)
	deps, _ := newDeps(t, srv)
	p := NewProjects(deps)
	seedProjects(t, srv, p)
	srv.Reply(http.MethodDelete, "/projects/{id}", http.StatusNoContent, nil)

	require.NoError(t, p.Archive(context.Background(), "2", true))

	assert.Equal(t, []string{"PATCH /projects/2", "DELETE /projects/2"}, srv.Calls())
	items := p.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0].ID)
}

func TestProjects_ArchiveAndDeleteBothFail(t *testing.T) {
	srv := fakebackend.New(t)
	deps, n := newDeps(t, srv)
	p := NewProjects(deps)
	seedProjects(t, srv, p)
	srv.Reply(http.MethodPatch, "/projects/{id}", http.StatusBadRequest, map[string]any{"detail": "cannot archive"})
	srv.Reply(http.MethodDelete, "/projects/{id}", http.StatusConflict, map[string]any{"detail": "project has open tasks"})
	before := p.Items()

	err := p.Archive(context.Background(), "1", true)

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrConfirmationRequired))
	assert.Equal(t, []string{"PATCH /projects/1", "DELETE /projects/1"}, srv.Calls())
	assert.Equal(t, before, p.Items())
	toasts := n.all()
	require.Len(t, toasts, 1, "exactly one notification")
	assert.Equal(t, notify.KindError, toasts[0].Kind)
	assert.Equal(t, "project has open tasks", toasts[0].Description)
}

func TestProjects_StrictMutationsStopAfterRejectedPatch(t *testing.T) {
	srv := fakebackend.New(t)
	deps, _ := newDeps(t, srv)
	deps.StrictMutations = true
	p := NewProjects(deps)
	seedProjects(t, srv, p)
	srv.Reply(http.MethodPatch, "/projects/{id}", http.StatusBadRequest, map[string]any{"detail": "cannot archive"})
	srv.Reply(http.MethodDelete, "/projects/{id}", http.StatusNoContent, nil)

	err := p.Archive(context.Background(), "1", true)

	require.Error(t, err)
	assert.Equal(t, []string{"PATCH /projects/1"}, srv.Calls())
	assert.Len(t, p.Items(), 2)
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, StatusArchived, NormalizeStatus("archived"))
	assert.Equal(t, StatusArchived, NormalizeStatus(" ARCHIVED "))
	assert.Equal(t, StatusActive, NormalizeStatus("active"))
	assert.Equal(t, StatusActive, NormalizeStatus(""))
	assert.Equal(t, StatusActive, NormalizeStatus("deleted"))
}
