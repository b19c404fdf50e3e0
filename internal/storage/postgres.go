package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps learner state in PostgreSQL, one row per key.
type PostgresStore struct {
	pool      *pgxpool.Pool
	namespace string
}

// ParsePostgresURL validates a PostgreSQL connection URL.
func ParsePostgresURL(url string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	return cfg, nil
}

// OpenPostgres creates a connection pool and ensures the schema exists.
func OpenPostgres(ctx context.Context, url, namespace string, maxConns, minConns int) (*PostgresStore, error) {
	cfg, err := ParsePostgresURL(url)
	if err != nil {
		return nil, err
	}

	if maxConns > math.MaxInt32 || minConns > math.MaxInt32 {
		return nil, fmt.Errorf("connection limits %d/%d exceed %d", maxConns, minConns, math.MaxInt32)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	if minConns > 0 {
		cfg.MinConns = int32(minConns)
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s, err := NewPostgresStore(ctx, pool, namespace)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing pool and creates the tables it needs.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, namespace string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if err := Migrate(ctx, pool); err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, namespace: namespace}, nil
}

// Migrate creates the key-value and learning event tables.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS kv_entries (
		   namespace  TEXT NOT NULL,
		   key        TEXT NOT NULL,
		   value      BYTEA NOT NULL,
		   updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		   PRIMARY KEY (namespace, key)
		 );
		 CREATE TABLE IF NOT EXISTS learning_events (
		   id          BIGSERIAL PRIMARY KEY,
		   namespace   TEXT NOT NULL,
		   event_type  TEXT NOT NULL,
		   exercise_id TEXT,
		   badge_id    TEXT,
		   data        JSONB NOT NULL DEFAULT '{}'::jsonb,
		   created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		 )`,
	)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Pool exposes the connection pool so other PostgreSQL writers can share it.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Namespace returns the key namespace of this store.
func (s *PostgresStore) Namespace() string {
	return s.namespace
}

func (s *PostgresStore) Get(key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM kv_entries WHERE namespace = $1 AND key = $2`,
		s.namespace,
		key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *PostgresStore) Set(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO kv_entries (namespace, key, value, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (namespace, key) DO UPDATE
		 SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		s.namespace,
		key,
		value,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// HealthCheck verifies the database connection is alive.
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
