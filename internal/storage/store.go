// Package storage provides the key-value persistence used for learner state.
// Every backend stores opaque byte values under string keys; callers own the
// encoding.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// storageTimeout bounds each backend call.
const storageTimeout = 5 * time.Second

// Store is a minimal key-value store.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(key string) ([]byte, bool, error)
	// Set replaces the value for key.
	Set(key string, value []byte) error
}

// Backend is a Store with a lifecycle.
type Backend interface {
	Store
	HealthCheck(ctx context.Context) error
	Close() error
}

// Drivers supported by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Driver      string
	Namespace   string
	SQLitePath  string
	PostgresURL string
	MaxConns    int
	MinConns    int
	RedisURL    string
}

// Open connects to the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch opts.Driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverSQLite:
		b, err = OpenSQLite(opts.SQLitePath, opts.Namespace)
	case DriverPostgres:
		b, err = OpenPostgres(ctx, opts.PostgresURL, opts.Namespace, opts.MaxConns, opts.MinConns)
	case DriverRedis:
		b, err = OpenRedis(ctx, opts.RedisURL, opts.Namespace)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", opts.Driver, err)
	}
	return b, nil
}

// MemoryStore is an in-memory Store. Values are copied on the way in and out.
type MemoryStore struct {
	values map[string][]byte
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
	}
}

func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) HealthCheck(context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func namespaced(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}
