// Package fakebackend runs an in-process backend for tests. Only the routes a
// test registers exist; everything else answers 404 or 405 the way a real
// router would, which is what the candidate fallback reacts to.
package fakebackend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Request is one recorded request.
type Request struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

// Key returns "METHOD /path".
func (r Request) Key() string {
	return r.Method + " " + r.Path
}

// Responder produces a status and a body. String bodies are written as raw
// text, anything else as JSON, nil as an empty body.
type Responder func(r *http.Request, body map[string]any) (int, any)

// Server is a recording chi router behind httptest.
type Server struct {
	*httptest.Server
	router *chi.Mux

	mu       sync.Mutex
	requests []Request
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{router: chi.NewRouter()}
	s.router.Use(s.record)
	// chi skips middleware until at least one route exists.
	s.router.Get("/__health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	s.Server = httptest.NewServer(s.router)
	t.Cleanup(s.Close)
	return s
}

// On registers a route. Patterns use chi syntax, e.g. "/users/{id}/role".
func (s *Server) On(method, pattern string, fn Responder) {
	s.router.MethodFunc(method, pattern, func(w http.ResponseWriter, r *http.Request) {
		body, _ := r.Context().Value(bodyKey{}).(map[string]any)
		status, payload := fn(r, body)
		write(w, status, payload)
	})
}

// Reply registers a route with a fixed answer.
func (s *Server) Reply(method, pattern string, status int, payload any) {
	s.On(method, pattern, func(*http.Request, map[string]any) (int, any) {
		return status, payload
	})
}

// Requests returns every recorded request in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := make([]Request, len(s.requests))
	copy(dup, s.requests)
	return dup
}

// Calls returns the "METHOD /path" keys of every recorded request.
func (s *Server) Calls() []string {
	reqs := s.Requests()
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.Key())
	}
	return out
}

// Reset forgets recorded requests.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// Param returns a chi URL parameter.
func Param(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(raw))

		var body map[string]any
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &body)
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
			Body:   body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), bodyKey{}, body)))
	})
}

type bodyKey struct{}

func write(w http.ResponseWriter, status int, payload any) {
	switch body := payload.(type) {
	case nil:
		w.WriteHeader(status)
	case string:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
