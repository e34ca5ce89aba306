package building

import (
	"context"
	"fmt"

	"housebot/internal/infra/persistence/postgres"
	"housebot/internal/infra/persistence/sqlite"
	"housebot/pkg/domain"
)

// Driver identifies a document storage backend.
type Driver string

const (
	DriverJSON     Driver = "json"     // JSON file at BUILDING_FILE
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
)

// OpenConfig selects and configures the document backend.
type OpenConfig struct {
	Driver      Driver
	File        string
	SQLitePath  string
	PostgresDSN string
}

// OpenDocuments constructs the document store for cfg.Driver. The JSON driver
// is the default.
func OpenDocuments(ctx context.Context, cfg OpenConfig) (domain.DocumentStore, error) {
	switch cfg.Driver {
	case DriverJSON, "":
		if cfg.File == "" {
			return nil, fmt.Errorf("json driver requires a building file")
		}
		return NewFileStore(cfg.File), nil
	case DriverSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case DriverPostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
