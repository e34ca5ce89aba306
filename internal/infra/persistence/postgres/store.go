// Package postgres keeps the building document in a Postgres JSONB column.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"housebot/pkg/domain"
)

var _ domain.DocumentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/housebot?sslmode=disable"
	// DocumentName is the row key of the building document.
	DocumentName = "building"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists the building document in a documents table.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore connects using dsn (falls back to a local default) and ensures the
// documents table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure documents table: %w", err)
	}
	return &Store{db: db}, nil
}

// Load decodes the stored document.
func (s *Store) Load(ctx context.Context) (*domain.Building, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM documents WHERE name = $1`, DocumentName).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound{Entity: domain.EntityDocument, ID: "postgres:" + DocumentName}
	}
	if err != nil {
		return nil, fmt.Errorf("select document: %w", err)
	}
	return domain.DecodeBuilding(payload, "postgres:"+DocumentName)
}

// Save upserts the document.
func (s *Store) Save(ctx context.Context, b *domain.Building) error {
	payload, err := domain.EncodeBuilding(b)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (name, version, payload) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET version = EXCLUDED.version, payload = EXCLUDED.payload, updated_at = now()`,
		DocumentName, b.Version, string(payload)); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for tests.
func (s *Store) DB() *sql.DB { return s.db }
