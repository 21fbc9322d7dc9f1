package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"formcraft/internal/config"
)

// PostgresDialect implements Dialect for PostgreSQL via pgx's database/sql driver.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "pgx" }

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *PostgresDialect) SchemaSQL() string { return pgSchemaSQL }

func (d *PostgresDialect) TimeParam(t time.Time) any { return t }

func (d *PostgresDialect) Configure(_ context.Context, db *sql.DB, cfg config.StoreConfig) error {
	if cfg.PoolSize > 0 {
		db.SetMaxOpenConns(cfg.PoolSize)
	}
	return nil
}

const pgSchemaSQL = `
CREATE TABLE IF NOT EXISTS forms (
    id          BIGSERIAL PRIMARY KEY,
    title       TEXT NOT NULL,
    definition  JSONB NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
