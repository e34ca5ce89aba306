// Package blob re-exports the backup store abstractions and selects a
// backend from configuration. Packages outside internal/blob depend on this
// package, never on internal/infra/blob directly.
package blob

import (
	"housebot/internal/blob/core"
)

type (
	// Driver identifies a backup store driver.
	Driver = core.Driver
	// PutOptions configures an object write.
	PutOptions = core.PutOptions
	// Info describes stored object metadata.
	Info = core.Info
	// Store is the interface for backup store backends.
	Store = core.Store
)

const (
	DriverFilesystem  = core.DriverFilesystem
	DriverS3          = core.DriverS3
	DriverMemory      = core.DriverMemory
	DriverGoogleDrive = core.DriverGoogleDrive
	DriverYandexDisk  = core.DriverYandexDisk
)

var (
	// ErrExists indicates Put found an existing object under the key.
	ErrExists = core.ErrExists
	// ErrNotFound indicates the key holds no object.
	ErrNotFound = core.ErrNotFound
)
