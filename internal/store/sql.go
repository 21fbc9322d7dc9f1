package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
	_ "modernc.org/sqlite"             // Register sqlite as database/sql driver

	"formcraft/internal/config"
	"formcraft/internal/form"
)

// Querier is implemented by both *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLStore keeps forms in a single table. Fields and rules are stored as one
// JSON document so options and logic round-trip verbatim.
type SQLStore struct {
	DB      *sql.DB
	Dialect Dialect
	baseURL string
	now     func() time.Time
}

// definition is the JSON column payload.
type definition struct {
	Fields []form.Field `json:"fields"`
	Rules  []form.Rule  `json:"rules,omitempty"`
}

// OpenSQL connects to the database named by cfg and creates the schema.
func OpenSQL(ctx context.Context, cfg config.StoreConfig, baseURL string) (*SQLStore, error) {
	dialect := NewDialect(cfg.Driver)

	db, err := sql.Open(dialect.DriverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := dialect.Configure(ctx, db, cfg); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &SQLStore{DB: db, Dialect: dialect, baseURL: baseURL, now: time.Now}
	if _, err := db.ExecContext(ctx, dialect.SchemaSQL()); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.DB.Close()
}

func (s *SQLStore) p(i int) string { return s.Dialect.Placeholder(i) }

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLStore) scanForm(r rowScanner) (*form.Form, error) {
	var (
		id      int64
		title   string
		raw     []byte
		created any
	)
	if err := r.Scan(&id, &title, &raw, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan form: %w", err)
	}

	var def definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("decode form %d: %w", id, err)
	}
	createdAt, err := parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("decode form %d: %w", id, err)
	}

	f := &form.Form{
		ID:           id,
		Title:        title,
		Fields:       def.Fields,
		Rules:        def.Rules,
		CreatedAt:    createdAt.UTC(),
		PublishedURL: PublishedURL(s.baseURL, id),
	}
	if f.Fields == nil {
		f.Fields = []form.Field{}
	}
	return f, nil
}

func encodeDefinition(f *form.Form) (string, error) {
	fields := f.Fields
	if fields == nil {
		fields = []form.Field{}
	}
	b, err := json.Marshal(definition{Fields: fields, Rules: f.Rules})
	if err != nil {
		return "", fmt.Errorf("encode form: %w", err)
	}
	return string(b), nil
}

const selectForm = "SELECT id, title, definition, created_at FROM forms"

func (s *SQLStore) List(ctx context.Context) ([]*form.Form, error) {
	rows, err := s.DB.QueryContext(ctx, selectForm+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	out := []*form.Form{}
	for rows.Next() {
		f, err := s.scanForm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func (s *SQLStore) get(ctx context.Context, q Querier, id int64) (*form.Form, error) {
	return s.scanForm(q.QueryRowContext(ctx, selectForm+" WHERE id = "+s.p(1), id))
}

func (s *SQLStore) Get(ctx context.Context, id int64) (*form.Form, error) {
	return s.get(ctx, s.DB, id)
}

func (s *SQLStore) Create(ctx context.Context, f *form.Form) (*form.Form, error) {
	def, err := encodeDefinition(f)
	if err != nil {
		return nil, err
	}
	// Postgres keeps microseconds; truncate so the returned value matches a later read.
	now := s.now().UTC().Truncate(time.Microsecond)

	query := fmt.Sprintf("INSERT INTO forms (title, definition, created_at) VALUES (%s, %s, %s) RETURNING id",
		s.p(1), s.p(2), s.p(3))
	var id int64
	if err := s.DB.QueryRowContext(ctx, query, f.Title, def, s.Dialect.TimeParam(now)).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert form: %w", err)
	}

	saved := f.Clone()
	saved.ID = id
	saved.CreatedAt = now
	saved.PublishedURL = PublishedURL(s.baseURL, id)
	if saved.Fields == nil {
		saved.Fields = []form.Field{}
	}
	return saved, nil
}

func (s *SQLStore) Update(ctx context.Context, id int64, patch FormPatch) (*form.Form, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	f, err := s.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	patch.apply(f)

	def, err := encodeDefinition(f)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("UPDATE forms SET title = %s, definition = %s WHERE id = %s", s.p(1), s.p(2), s.p(3))
	if _, err := tx.ExecContext(ctx, query, f.Title, def, id); err != nil {
		return nil, fmt.Errorf("update form: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return f, nil
}

func (s *SQLStore) Delete(ctx context.Context, id int64) (*form.Form, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	f, err := s.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM forms WHERE id = "+s.p(1), id); err != nil {
		return nil, fmt.Errorf("delete form: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return f, nil
}
