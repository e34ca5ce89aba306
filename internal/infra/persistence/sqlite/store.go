// Package sqlite keeps the building document in a single SQLite row.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"housebot/pkg/domain"
)

var _ domain.DocumentStore = (*Store)(nil)

// DocumentName is the row key of the building document.
const DocumentName = "building"

// Store persists the building document as JSON in a documents table.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (or creates) the database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = filepath.Join("data", "building.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Load decodes the stored document.
func (s *Store) Load(ctx context.Context) (*domain.Building, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM documents WHERE name = ?`, DocumentName).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound{Entity: domain.EntityDocument, ID: s.path}
	}
	if err != nil {
		return nil, fmt.Errorf("select document: %w", err)
	}
	return domain.DecodeBuilding(payload, "sqlite:"+s.path)
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
		`INSERT INTO documents(name, version, payload) VALUES(?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET version = excluded.version, payload = excluded.payload`,
		DocumentName, b.Version, payload); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for tests.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }
