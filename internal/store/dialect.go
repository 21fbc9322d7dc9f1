package store

import (
	"context"
	"database/sql"
	"time"

	"formcraft/internal/config"
)

// Dialect isolates the SQL differences between the supported databases.
type Dialect interface {
	// Name returns "postgres" or "sqlite".
	Name() string

	// DriverName returns the database/sql driver name ("pgx" or "sqlite").
	DriverName() string

	// Placeholder returns the parameter placeholder for the given 1-based index.
	Placeholder(index int) string

	// SchemaSQL returns the DDL for the forms table.
	SchemaSQL() string

	// TimeParam encodes a timestamp for storage.
	TimeParam(t time.Time) any

	// Configure applies pool limits and connection pragmas.
	Configure(ctx context.Context, db *sql.DB, cfg config.StoreConfig) error
}

// NewDialect creates a Dialect for the given driver name ("postgres" or "sqlite").
func NewDialect(driver string) Dialect {
	switch driver {
	case "sqlite":
		return &SQLiteDialect{}
	default:
		return &PostgresDialect{}
	}
}
