// Package building loads, mutates and saves the building registry, bumping
// its version on every save and handing the saved file to the backup sink.
package building

import (
	"context"
	"fmt"
	"path"
	"slices"
	"sync"
	"time"

	"housebot/internal/backup"
	"housebot/internal/logging"
	"housebot/pkg/domain"
)

// Metrics is the subset of the metrics recorder the store reports to.
type Metrics interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	SetBuildingVersion(v int)
}

// Store is the registry service used by the chat handlers.
type Store struct {
	docs    domain.DocumentStore
	export  string
	sink    backup.Sink
	folder  string
	log     logging.Logger
	metrics Metrics

	// mu serializes Update so load-mutate-save sequences never interleave.
	mu sync.Mutex
}

// Option customises a Store.
type Option func(*Store)

// WithBackup hands every saved document to sink under folder.
func WithBackup(sink backup.Sink, folder string) Option {
	return func(s *Store) {
		s.sink = sink
		s.folder = folder
	}
}

// WithExport writes a JSON copy of every saved document to path. The copy is
// what the backup sink uploads; stores that are themselves a JSON file pass
// their own path.
func WithExport(path string) Option { return func(s *Store) { s.export = path } }

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option { return func(s *Store) { s.log = l } }

// WithMetrics reports operations and the current version.
func WithMetrics(m Metrics) Option { return func(s *Store) { s.metrics = m } }

// NewStore wraps a document store.
func NewStore(docs domain.DocumentStore, opts ...Option) *Store {
	s := &Store{docs: docs, sink: backup.Nop{}, log: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns a fresh copy of the stored building.
func (s *Store) Load(ctx context.Context) (*domain.Building, error) {
	start := time.Now()
	b, err := s.docs.Load(ctx)
	s.observe(ctx, "building.load", err, start)
	return b, err
}

// Save bumps the version, persists b and triggers a backup without waiting
// for it. A version below 1 counts as 1, so the first save of a legacy
// document yields version 2. On failure b keeps its previous version.
func (s *Store) Save(ctx context.Context, b *domain.Building) error {
	start := time.Now()
	prev := b.Version
	b.Version = max(prev, 1) + 1
	if err := s.docs.Save(ctx, b); err != nil {
		b.Version = prev
		s.observe(ctx, "building.save", err, start)
		return fmt.Errorf("save building: %w", err)
	}
	s.observe(ctx, "building.save", nil, start)
	if s.metrics != nil {
		s.metrics.SetBuildingVersion(b.Version)
	}
	s.log.Debug("building saved", "version", b.Version)
	s.publish(b)
	return nil
}

func (s *Store) publish(b *domain.Building) {
	if s.export == "" {
		return
	}
	if err := s.writeExport(b); err != nil {
		s.log.Error("building export failed, backup skipped", "path", s.export, "error", err)
		return
	}
	s.sink.Upload(s.export, BackupKey(s.folder, b.Version))
}

// writeExport refreshes the JSON copy unless the document store already is
// that file.
func (s *Store) writeExport(b *domain.Building) error {
	if fs, ok := s.docs.(*FileStore); ok && fs.Path() == s.export {
		return nil
	}
	data, err := domain.EncodeBuilding(b)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.export, data)
}

// BackupKey is the remote path of the backup for version.
func BackupKey(folder string, version int) string {
	return path.Join(folder, fmt.Sprintf("building.v%d.json", version))
}

// Update loads the building, applies fn and saves the result. An fn error
// aborts without saving and is returned unchanged.
func (s *Store) Update(ctx context.Context, fn func(*domain.Building) error) (*domain.Building, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return b, err
	}
	if err := s.Save(ctx, b); err != nil {
		return b, err
	}
	return b, nil
}

// ResidentsOf returns the residents of the first apartment numbered apartment,
// scanning floors in ascending order.
func (s *Store) ResidentsOf(ctx context.Context, apartment int) ([]string, error) {
	b, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	_, a, err := b.Locate(apartment)
	if err != nil {
		return nil, err
	}
	return slices.Clone(a.Residents), nil
}

// NumbersOf returns the phone numbers of the first apartment numbered apartment.
func (s *Store) NumbersOf(ctx context.Context, apartment int) ([]string, error) {
	b, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	_, a, err := b.Locate(apartment)
	if err != nil {
		return nil, err
	}
	return slices.Clone(a.Numbers), nil
}

// EnsureSeeded writes a generated version 1 building when no document exists.
// It reports whether seeding happened. Seeding does not trigger a backup.
func (s *Store) EnsureSeeded(ctx context.Context, floorMin, floorMax, perFloor int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.docs.Load(ctx)
	if err == nil {
		if s.metrics != nil {
			s.metrics.SetBuildingVersion(b.Version)
		}
		return false, nil
	}
	if !domain.IsNotFound(err) {
		return false, err
	}
	b = domain.NewBuilding(floorMin, floorMax, perFloor)
	if err := s.docs.Save(ctx, b); err != nil {
		return false, fmt.Errorf("seed building: %w", err)
	}
	if s.export != "" {
		if err := s.writeExport(b); err != nil {
			s.log.Warn("building export failed", "path", s.export, "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.SetBuildingVersion(b.Version)
	}
	s.log.Info("building seeded", "floors", floorMax-floorMin+1, "apartments_per_floor", perFloor)
	return true, nil
}

// Close releases the document store.
func (s *Store) Close() error { return s.docs.Close() }

func (s *Store) observe(ctx context.Context, op string, err error, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
}
