package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"formcraft/internal/config"
	"formcraft/internal/form"
)

var ErrNotFound = errors.New("not found")

// FormStore is the persistence collaborator for saved and published forms.
// Every method returns ErrNotFound for an unknown id.
type FormStore interface {
	List(ctx context.Context) ([]*form.Form, error)
	Get(ctx context.Context, id int64) (*form.Form, error)
	// Create assigns the id, creation timestamp and published URL.
	Create(ctx context.Context, f *form.Form) (*form.Form, error)
	Update(ctx context.Context, id int64, patch FormPatch) (*form.Form, error)
	// Delete removes the form and returns it as it was.
	Delete(ctx context.Context, id int64) (*form.Form, error)
	Close() error
}

// FormPatch is a shallow partial update. A nil Fields or Rules leaves the
// stored value alone; an empty non-nil slice clears it.
type FormPatch struct {
	Title  *string      `json:"title,omitempty"`
	Fields []form.Field `json:"fields,omitempty"`
	Rules  []form.Rule  `json:"rules,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p FormPatch) Empty() bool {
	return p.Title == nil && p.Fields == nil && p.Rules == nil
}

func (p FormPatch) apply(f *form.Form) {
	if p.Title != nil {
		f.Title = *p.Title
	}
	if p.Fields != nil {
		f.Fields = make([]form.Field, len(p.Fields))
		for i, fld := range p.Fields {
			f.Fields[i] = fld.Clone()
		}
	}
	if p.Rules != nil {
		f.Rules = append([]form.Rule{}, p.Rules...)
	}
}

// New opens the store selected by cfg.Driver and loads the seed file, if any,
// into an empty store.
func New(ctx context.Context, cfg config.StoreConfig, baseURL string, logger *zap.Logger) (FormStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("store")

	var (
		s   FormStore
		err error
	)
	switch cfg.Driver {
	case "", "memory":
		s = NewMemoryStore(baseURL, cfg.MockLatency)
	case "sqlite", "postgres":
		s, err = OpenSQL(ctx, cfg, baseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.SeedFile != "" {
		n, err := Bootstrap(ctx, s, cfg.SeedFile)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("seed forms: %w", err)
		}
		if n > 0 {
			logger.Info("Seeded forms", zap.String("file", cfg.SeedFile), zap.Int("count", n))
		}
	}
	logger.Info("Form store ready", zap.String("driver", driverName(cfg.Driver)))
	return s, nil
}

func driverName(d string) string {
	if d == "" {
		return "memory"
	}
	return d
}

// PublishedURL returns the public address of a saved form.
func PublishedURL(baseURL string, id int64) string {
	return strings.TrimRight(baseURL, "/") + "/" + strconv.FormatInt(id, 10)
}

// parseTime converts a stored timestamp into a time.Time. SQLite hands back
// TEXT, Postgres a native time.
func parseTime(v any) (time.Time, error) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return val, nil
	case []byte:
		return parseTime(string(val))
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, val); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", val)
	}
	return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
}
