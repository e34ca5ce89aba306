// Package backup copies saved building documents to a remote store. Uploads
// never block the caller and their failures are only logged.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"housebot/internal/blob"
	"housebot/internal/logging"
)

// DefaultTimeout bounds a single upload.
const DefaultTimeout = 2 * time.Minute

// Sink receives a local file to publish under remotePath.
type Sink interface {
	Upload(localFile, remotePath string)
}

// Nop discards uploads.
type Nop struct{}

// Upload does nothing.
func (Nop) Upload(string, string) {}

// Metrics is the subset of the metrics recorder the sink reports to.
type Metrics interface {
	BackupResult(success bool)
}

// BlobSink uploads into a blob.Store on a background goroutine.
type BlobSink struct {
	store   blob.Store
	log     logging.Logger
	metrics Metrics
	timeout time.Duration
	wg      sync.WaitGroup
}

// Option customises a BlobSink.
type Option func(*BlobSink)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option { return func(s *BlobSink) { s.log = l } }

// WithMetrics reports upload outcomes.
func WithMetrics(m Metrics) Option { return func(s *BlobSink) { s.metrics = m } }

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option { return func(s *BlobSink) { s.timeout = d } }

// NewBlobSink wraps store.
func NewBlobSink(store blob.Store, opts ...Option) *BlobSink {
	s := &BlobSink{store: store, log: logging.Nop(), timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload snapshots localFile immediately and publishes it in the background.
// An existing object at remotePath is replaced.
func (s *BlobSink) Upload(localFile, remotePath string) {
	data, err := os.ReadFile(localFile)
	if err != nil {
		s.log.Error("backup skipped: cannot read local file", "file", localFile, "error", err)
		s.report(false)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		start := time.Now()
		if err := s.replace(ctx, remotePath, data); err != nil {
			s.log.Error("backup upload failed", "driver", s.store.Driver(), "path", remotePath, "error", err)
			s.report(false)
			return
		}
		s.log.Info("backup uploaded", "driver", s.store.Driver(), "path", remotePath, "bytes", len(data), "elapsed", time.Since(start))
		s.report(true)
	}()
}

func (s *BlobSink) replace(ctx context.Context, key string, data []byte) error {
	opts := blob.PutOptions{ContentType: contentType(key)}
	_, err := s.store.Put(ctx, key, bytes.NewReader(data), opts)
	if !errors.Is(err, blob.ErrExists) {
		return err
	}
	if _, err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete previous %s: %w", key, err)
	}
	_, err = s.store.Put(ctx, key, bytes.NewReader(data), opts)
	return err
}

func (s *BlobSink) report(success bool) {
	if s.metrics != nil {
		s.metrics.BackupResult(success)
	}
}

// Wait blocks until every started upload has finished.
func (s *BlobSink) Wait() { s.wg.Wait() }

// List returns the backups stored under folder, oldest key first.
func List(ctx context.Context, store blob.Store, folder string) ([]blob.Info, error) {
	prefix := strings.Trim(folder, "/")
	if prefix != "" {
		prefix += "/"
	}
	return store.List(ctx, prefix)
}

// Restore downloads key into dst, replacing dst atomically.
func Restore(ctx context.Context, store blob.Store, key, dst string) (int64, error) {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".restore-*")
	if err != nil {
		return 0, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	n, err := io.Copy(tmp, rc)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, err
	}
	return n, os.Rename(tmp.Name(), dst)
}

func contentType(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".json":
		return "application/json"
	case ".svg":
		return "image/svg+xml"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
