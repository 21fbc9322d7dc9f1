package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"formcraft/internal/config"
)

// SQLiteDialect implements Dialect for SQLite via modernc.org/sqlite.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string       { return "sqlite" }
func (d *SQLiteDialect) DriverName() string { return "sqlite" }

func (d *SQLiteDialect) Placeholder(index int) string {
	return fmt.Sprintf("?%d", index)
}

func (d *SQLiteDialect) SchemaSQL() string { return sqliteSchemaSQL }

// TimeParam stores timestamps as RFC 3339 TEXT.
func (d *SQLiteDialect) TimeParam(t time.Time) any {
	return t.UTC().Format(time.RFC3339Nano)
}

func (d *SQLiteDialect) Configure(ctx context.Context, db *sql.DB, cfg config.StoreConfig) error {
	if cfg.Path != "" {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	// SQLite: single writer, WAL mode for concurrent reads
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	return nil
}

// INTEGER PRIMARY KEY without AUTOINCREMENT hands out max(id)+1.
const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS forms (
    id          INTEGER PRIMARY KEY,
    title       TEXT NOT NULL,
    definition  TEXT NOT NULL,
    created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);
`
