package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"housebot/internal/building"
	"housebot/internal/config"
	"housebot/internal/logging"
	"housebot/pkg/domain"
)

type upload struct {
	Local, Remote string
	Version       int
}

type recordingSink struct {
	mu      sync.Mutex
	uploads []upload
}

// Upload reads the local file at hand-off time so the test sees what a real
// sink would upload.
func (s *recordingSink) Upload(localFile, remotePath string) {
	u := upload{Local: localFile, Remote: remotePath}
	if data, err := os.ReadFile(localFile); err == nil {
		if b, err := domain.DecodeBuilding(data, localFile); err == nil {
			u.Version = b.Version
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, u)
}

func TestOpenBuildingSavesReachBackupSink(t *testing.T) {
	for _, driver := range []string{"json", "sqlite", "memory"} {
		t.Run(driver, func(t *testing.T) {
			dir := t.TempDir()
			file := filepath.Join(dir, "building.json")
			c := &cli{
				cfg: &config.Config{
					BuildingFile: file,
					Storage: config.Storage{
						Driver:     driver,
						SQLitePath: filepath.Join(dir, "building.db"),
					},
				},
				log: logging.Nop(),
			}
			sink := &recordingSink{}
			ctx := context.Background()
			store, err := c.openBuilding(ctx, building.WithBackup(sink, "housebot"))
			if err != nil {
				t.Fatalf("open building: %v", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.Save(ctx, domain.NewBuilding(3, 4, 2)); err != nil {
				t.Fatalf("save: %v", err)
			}
			if _, err := store.Update(ctx, func(b *domain.Building) error {
				_, apt, err := b.Locate(301)
				if err != nil {
					return err
				}
				return apt.AddResident("alice")
			}); err != nil {
				t.Fatalf("update: %v", err)
			}

			want := []upload{
				{Local: file, Remote: "housebot/building.v2.json", Version: 2},
				{Local: file, Remote: "housebot/building.v3.json", Version: 3},
			}
			if diff := cmp.Diff(want, sink.uploads); diff != "" {
				t.Fatalf("uploads mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
