// Package tokenstore persists the single bearer credential between runs.
// An empty token means anonymous.
package tokenstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Store persists one credential.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Kinds accepted by New.
const (
	KindFile   = "file"
	KindRedis  = "redis"
	KindMemory = "memory"
)

// Options select and configure a Store.
type Options struct {
	Kind      string
	Path      string
	RedisAddr string
	RedisKey  string
}

// New builds the store selected by opts.Kind. Stores that hold connections
// also implement io.Closer.
func New(opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case "", KindFile:
		return NewFileStore(opts.Path)
	case KindRedis:
		return NewRedisStore(opts.RedisAddr, opts.RedisKey)
	case KindMemory:
		return &MemoryStore{}, nil
	default:
		return nil, fmt.Errorf("unknown token store %q", opts.Kind)
	}
}

// MemoryStore keeps the token for the process lifetime only.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryStore) Get(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Set(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
