package console

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/five82/foreman/internal/api"
)

// ProjectStatus is either active or archived.
type ProjectStatus string

const (
	StatusActive   ProjectStatus = "active"
	StatusArchived ProjectStatus = "archived"
)

// NormalizeStatus maps anything other than "archived" to active.
func NormalizeStatus(s string) ProjectStatus {
	if strings.EqualFold(strings.TrimSpace(s), string(StatusArchived)) {
		return StatusArchived
	}
	return StatusActive
}

// Project is one row of the projects view.
type Project struct {
	ID          string
	Name        string
	Description string
	Status      ProjectStatus
}

// ProjectForm is the create/edit form.
type ProjectForm struct {
	Name        string `validate:"required,min=2,max=200"`
	Description string `validate:"max=2000"`
}

func (f ProjectForm) trimmed() ProjectForm {
	return ProjectForm{
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
	}
}

func projectFrom(obj map[string]any) Project {
	return Project{
		ID:          idOf(obj),
		Name:        api.String(obj, "name", "title"),
		Description: api.String(obj, "description", "summary"),
		Status:      NormalizeStatus(api.String(obj, "status")),
	}
}

// Projects is the projects view.
type Projects struct {
	deps Deps
	gen  generation

	mu    sync.RWMutex
	items []Project
}

// NewProjects builds an empty projects view.
func NewProjects(deps Deps) *Projects {
	return &Projects{deps: deps}
}

// Items returns a copy of the current list.
func (p *Projects) Items() []Project {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Project, len(p.items))
	copy(out, p.items)
	return out
}

// Leave abandons in-flight loads; their results are dropped.
func (p *Projects) Leave() {
	p.gen.next()
}

// Load replaces the list with a fresh fetch.
func (p *Projects) Load(ctx context.Context) error {
	gen := p.gen.next()
	value, err := api.Probe(ctx, p.deps.Client, api.ListProjects())
	if p.gen.current() != gen {
		return ErrStale
	}
	if err != nil {
		p.deps.failure("Could not load projects", err)
		return fmt.Errorf("load projects: %w", err)
	}

	list := api.NormalizeList(value)
	items := make([]Project, 0, len(list))
	for _, raw := range list {
		if obj := api.Object(raw); obj != nil {
			items = append(items, projectFrom(obj))
		}
	}
	p.mu.Lock()
	p.items = items
	p.mu.Unlock()
	return nil
}

// Create validates form and creates a project. The new project is prepended.
func (p *Projects) Create(ctx context.Context, form ProjectForm) (Project, error) {
	form = form.trimmed()
	if err := check(form); err != nil {
		return Project{}, err
	}
	body := map[string]any{
		"name":        form.Name,
		"description": form.Description,
		"status":      string(StatusActive),
	}
	value, err := api.Probe(ctx, p.deps.Client, api.CreateProject(body), p.deps.probeOptions()...)
	if err != nil {
		p.deps.failure("Could not create project", err)
		return Project{}, fmt.Errorf("create project: %w", err)
	}

	created := Project{Name: form.Name, Description: form.Description, Status: StatusActive}
	if obj := entityFrom(value, "project"); obj != nil {
		merged := projectFrom(obj)
		created.ID = merged.ID
		if merged.Name != "" {
			created = merged
		}
	}
	p.mu.Lock()
	p.items = append([]Project{created}, p.items...)
	p.mu.Unlock()
	p.deps.success("Project created", created.Name)
	return created, nil
}

// Update validates form and saves it over project id.
func (p *Projects) Update(ctx context.Context, id string, form ProjectForm) (Project, error) {
	form = form.trimmed()
	if err := check(form); err != nil {
		return Project{}, err
	}
	body := map[string]any{"name": form.Name, "description": form.Description}
	value, err := api.Probe(ctx, p.deps.Client, api.UpdateProject(id, body), p.deps.probeOptions()...)
	if err != nil {
		p.deps.failure("Could not update project", err)
		return Project{}, fmt.Errorf("update project %s: %w", id, err)
	}

	updated, _ := p.find(id)
	updated.ID = id
	updated.Name = form.Name
	updated.Description = form.Description
	if obj := entityFrom(value, "project"); obj != nil && api.String(obj, "name", "title") != "" {
		updated = projectFrom(obj)
		updated.ID = id
	}
	p.replace(updated)
	p.deps.success("Project updated", updated.Name)
	return updated, nil
}

// Archive marks project id archived. When allowDelete is false and the
// backend has no archive route, ErrConfirmationRequired is returned and nothing
// else is attempted. Any other archive failure is returned as is. With allowDelete the delete fallback runs in the same probe;
// if both fail the list is left unchanged.
func (p *Projects) Archive(ctx context.Context, id string, allowDelete bool) error {
	if !allowDelete {
		value, err := api.Probe(ctx, p.deps.Client, api.ArchiveProject(id), p.deps.probeOptions()...)
		if err != nil {
			p.deps.failure("Could not archive project", err)
			if !api.IsRouteAbsent(err) {
				return fmt.Errorf("archive project %s: %w", id, err)
			}
			p.deps.logger().Info("archive unavailable, delete needs confirmation",
				slog.String("project", id), slog.Any("error", err))
			return fmt.Errorf("archive project %s: %w: %w", id, ErrConfirmationRequired, err)
		}
		p.markArchived(id, value)
		return nil
	}

	res, err := api.ProbeResult(ctx, p.deps.Client, api.ArchiveOrDeleteProject(id), p.deps.probeOptions()...)
	if err != nil {
		p.deps.failure("Could not archive project", err)
		return fmt.Errorf("archive project %s: %w", id, err)
	}
	if res.Candidate.Method == http.MethodDelete {
		p.remove(id)
		p.deps.success("Project deleted", "Archiving was unavailable, so the project was deleted.")
		return nil
	}
	p.markArchived(id, res.Value)
	return nil
}

// Delete removes project id. It is the confirmed follow-up to an Archive that
// returned ErrConfirmationRequired.
func (p *Projects) Delete(ctx context.Context, id string) error {
	if _, err := api.Probe(ctx, p.deps.Client, api.DeleteProject(id), p.deps.probeOptions()...); err != nil {
		p.deps.failure("Could not delete project", err)
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	p.remove(id)
	p.deps.success("Project deleted", "")
	return nil
}

func (p *Projects) markArchived(id string, value any) {
	archived, _ := p.find(id)
	archived.ID = id
	if obj := entityFrom(value, "project"); obj != nil && api.String(obj, "name", "title") != "" {
		archived = projectFrom(obj)
		archived.ID = id
	}
	archived.Status = StatusArchived
	p.replace(archived)
	p.deps.success("Project archived", archived.Name)
}

func (p *Projects) find(id string) (Project, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, item := range p.items {
		if item.ID == id {
			return item, true
		}
	}
	return Project{}, false
}

func (p *Projects) replace(project Project) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, item := range p.items {
		if item.ID == project.ID {
			p.items[i] = project
			return
		}
	}
	p.items = append([]Project{project}, p.items...)
}

func (p *Projects) remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.items[:0]
	for _, item := range p.items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	p.items = out
}
