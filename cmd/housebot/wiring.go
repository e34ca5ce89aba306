package main

import (
	"context"
	"fmt"

	"housebot/internal/blob"
	"housebot/internal/building"
	"housebot/internal/config"
)

// openBuilding opens the configured document backend. Every saved version
// lands in BUILDING_FILE, which is what the backup sink uploads; the json
// driver writes it directly and the others mirror to it.
func (c *cli) openBuilding(ctx context.Context, opts ...building.Option) (*building.Store, error) {
	driver := building.Driver(c.cfg.Storage.Driver)
	docs, err := building.OpenDocuments(ctx, building.OpenConfig{
		Driver:      driver,
		File:        c.cfg.BuildingFile,
		SQLitePath:  c.cfg.Storage.SQLitePath,
		PostgresDSN: c.cfg.Storage.PostgresDSN,
	})
	if err != nil {
		return nil, fmt.Errorf("open building store: %w", err)
	}
	opts = append([]building.Option{
		building.WithLogger(c.log.With("component", "building")),
		building.WithExport(c.cfg.BuildingFile),
	}, opts...)
	return building.NewStore(docs, opts...), nil
}

// openBackupStore returns the remote backup store, or nil when backups are
// disabled. Missing credentials are logged, never fatal.
func (c *cli) openBackupStore(ctx context.Context) (blob.Store, error) {
	driver, warning := c.cfg.Backup.ResolveDriver()
	if warning != "" {
		c.log.Warn(warning)
	}
	if driver == config.BackupNone {
		return nil, nil
	}
	cfg := blob.Config{
		FSRoot: c.cfg.Backup.FSRoot,
		S3: blob.S3Config{
			Bucket:    c.cfg.Backup.S3.Bucket,
			Region:    c.cfg.Backup.S3.Region,
			Endpoint:  c.cfg.Backup.S3.Endpoint,
			PathStyle: c.cfg.Backup.S3.PathStyle,
		},
		YandexDisk: blob.YandexDiskConfig{Token: c.cfg.Backup.YandexToken},
	}
	if driver == config.BackupGDrive {
		creds, err := c.cfg.Backup.Google.CredentialsJSON()
		if err != nil {
			return nil, err
		}
		cfg.GoogleDrive = blob.GoogleDriveConfig{CredentialsJSON: creds, FolderID: c.cfg.Backup.Google.FolderID}
	}
	store, err := blob.Open(ctx, blob.Driver(driver), cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backup store: %w", driver, err)
	}
	c.log.Info("remote backup enabled", "driver", driver, "folder", c.cfg.Backup.Folder)
	return store, nil
}
