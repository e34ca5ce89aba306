package blob

import (
	"context"
	"fmt"

	"housebot/internal/infra/blob/fs"
	"housebot/internal/infra/blob/gdrive"
	"housebot/internal/infra/blob/memory"
	"housebot/internal/infra/blob/s3"
	"housebot/internal/infra/blob/yadisk"
)

// Config carries the settings of every backend; only the fields of the
// selected driver are consulted.
type Config struct {
	FSRoot      string
	S3          S3Config
	GoogleDrive GoogleDriveConfig
	YandexDisk  YandexDiskConfig
}

type (
	// S3Config configures the S3 / MinIO backend.
	S3Config = s3.Config
	// GoogleDriveConfig configures the Google Drive backend.
	GoogleDriveConfig = gdrive.Config
	// YandexDiskConfig configures the Yandex Disk backend.
	YandexDiskConfig = yadisk.Config
)

// Open constructs the Store for driver.
func Open(ctx context.Context, driver Driver, cfg Config) (Store, error) {
	switch driver {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return s3.New(ctx, cfg.S3)
	case DriverMemory:
		return memory.New(), nil
	case DriverGoogleDrive:
		return gdrive.New(ctx, cfg.GoogleDrive)
	case DriverYandexDisk:
		return yadisk.New(cfg.YandexDisk)
	default:
		return nil, fmt.Errorf("unknown backup driver %q", driver)
	}
}

// NewMemory returns an in-memory Store for tests.
func NewMemory() Store { return memory.New() }
