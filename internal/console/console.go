// Package console implements the feature views of the admin console:
// projects, users and roles. Each view owns the transient list state for its
// screen, validates forms before any write, and reports outcomes as toasts.
package console

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/five82/foreman/internal/api"
	"github.com/five82/foreman/internal/notify"
)

var (
	// ErrStale is returned when a result arrived after the view was left or
	// reloaded. The result has been dropped.
	ErrStale = errors.New("result is stale")

	// ErrConfirmationRequired is returned by Projects.Archive when the backend
	// has no archive route and only a destructive delete is left to try.
	ErrConfirmationRequired = errors.New("archive failed; deleting requires confirmation")
)

// Notifier receives user-facing outcomes. *notify.Hub implements it.
type Notifier interface {
	Success(title, description string) notify.Toast
	Error(title, description string) notify.Toast
}

// Deps are the collaborators shared by every view.
type Deps struct {
	Client          api.Doer
	Notify          Notifier
	Logger          *slog.Logger
	StrictMutations bool
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (d Deps) probeOptions() []api.ProbeOption {
	return []api.ProbeOption{api.WithStrictMutations(d.StrictMutations)}
}

func (d Deps) success(title, description string) {
	if d.Notify != nil {
		d.Notify.Success(title, description)
	}
}

func (d Deps) failure(title string, err error) {
	if d.Notify != nil {
		d.Notify.Error(title, api.Message(err))
	}
}

// ValidationError carries field-level messages for a rejected form. It is
// produced before any request is issued.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Field returns the message for one field, or "".
func (e *ValidationError) Field(name string) string {
	if e == nil {
		return ""
	}
	return e.Fields[name]
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// check runs struct validation and maps failures to lower-case field names
// with readable messages.
func check(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate form: %w", err)
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[strings.ToLower(fe.Field())] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "email":
		return fe.Field() + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fe.Field() + " is invalid"
}

// generation drops results that belong to an abandoned load.
type generation struct {
	mu  sync.Mutex
	gen uint64
}

func (g *generation) next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	return g.gen
}

func (g *generation) current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen
}

// idOf extracts an entity id from a response object.
func idOf(obj map[string]any) string {
	return api.String(obj, "id", "_id", "uuid")
}

// entityFrom unwraps a write response. Backends answer with the entity
// itself or with the entity under "data" or a named key.
func entityFrom(v any, names ...string) map[string]any {
	obj := api.Object(v)
	if obj == nil {
		return nil
	}
	for _, key := range append(names, "data") {
		if inner := api.Object(obj[key]); inner != nil {
			return inner
		}
	}
	return obj
}
