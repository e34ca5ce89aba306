package building

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"housebot/pkg/domain"
)

var _ domain.DocumentStore = (*FileStore)(nil)

// FileStore keeps the document as an indented JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store for path. The file need not exist yet.
func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Load reads and decodes the file.
func (s *FileStore) Load(context.Context) (*domain.Building, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound{Entity: domain.EntityDocument, ID: s.path}
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return domain.DecodeBuilding(data, s.path)
}

// Save replaces the file atomically.
func (s *FileStore) Save(_ context.Context, b *domain.Building) error {
	data, err := domain.EncodeBuilding(b)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data)
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// MemoryStore keeps the encoded document in memory. Used by tests and the
// memory driver.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

var _ domain.DocumentStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store; Load fails with ErrNotFound until the first Save.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// Load decodes the last saved document.
func (s *MemoryStore) Load(context.Context) (*domain.Building, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, domain.ErrNotFound{Entity: domain.EntityDocument, ID: "memory"}
	}
	return domain.DecodeBuilding(s.data, "memory")
}

// Save stores an encoded copy.
func (s *MemoryStore) Save(_ context.Context, b *domain.Building) error {
	data, err := domain.EncodeBuilding(b)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
