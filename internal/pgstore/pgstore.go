// Package pgstore implements types.Storage on a PostgreSQL table, so a DM
// can keep customizations in a shared database.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mesh-intelligence/tokenshelf/pkg/types"
)

// DefaultTable is used when postgres.table is unset.
const DefaultTable = "local_storage"

// Store keeps items in a key/value table.
type Store struct {
	mu       sync.RWMutex
	attached bool
	pool     *pgxpool.Pool
	sql      statements
}

type statements struct {
	create string
	get    string
	upsert string
	remove string
}

func newStatements(table string) statements {
	ident := pgx.Identifier{table}.Sanitize()
	return statements{
		create: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, ident),
		get: fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, ident),
		upsert: fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, ident),
		remove: fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, ident),
	}
}

// New returns a detached postgres store.
func New() *Store {
	return &Store{}
}

// Attach connects a pool to config.Postgres.DSN and creates the table.
func (s *Store) Attach(config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	poolConfig, err := pgxpool.ParseConfig(config.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("parsing postgres dsn: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}

	table := config.Postgres.Table
	if table == "" {
		table = DefaultTable
	}
	stmts := newStatements(table)
	if _, err := pool.Exec(ctx, stmts.create); err != nil {
		pool.Close()
		return fmt.Errorf("creating table %s: %w", table, err)
	}

	s.pool = pool
	s.sql = stmts
	s.attached = true
	return nil
}

// Detach closes the pool. Idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil
	}
	s.pool.Close()
	s.pool = nil
	s.attached = false
	return nil
}

// GetItem returns the value stored under key.
func (s *Store) GetItem(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return nil, types.ErrStorageDetached
	}
	var value string
	err := s.pool.QueryRow(ctx, s.sql.get, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return []byte(value), nil
}

// SetItem upserts value under key.
func (s *Store) SetItem(ctx context.Context, key string, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return types.ErrStorageDetached
	}
	if _, err := s.pool.Exec(ctx, s.sql.upsert, key, string(value)); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key.
func (s *Store) RemoveItem(ctx context.Context, key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return types.ErrStorageDetached
	}
	if _, err := s.pool.Exec(ctx, s.sql.remove, key); err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}
