package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"formcraft/internal/form"
)

// MemoryStore is the mock forms service: everything lives in a map and each
// call waits for the configured latency first.
type MemoryStore struct {
	mu      sync.Mutex
	forms   map[int64]*form.Form
	baseURL string
	latency time.Duration
	now     func() time.Time
}

func NewMemoryStore(baseURL string, latency time.Duration) *MemoryStore {
	return &MemoryStore{
		forms:   make(map[int64]*form.Form),
		baseURL: baseURL,
		latency: latency,
		now:     time.Now,
	}
}

func (s *MemoryStore) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *MemoryStore) List(ctx context.Context) ([]*form.Form, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*form.Form, 0, len(s.forms))
	for _, f := range s.forms {
		out = append(out, f.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (*form.Form, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.forms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return f.Clone(), nil
}

func (s *MemoryStore) Create(ctx context.Context, f *form.Form) (*form.Form, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var maxID int64
	for id := range s.forms {
		if id > maxID {
			maxID = id
		}
	}
	saved := f.Clone()
	saved.ID = maxID + 1
	saved.CreatedAt = s.now().UTC()
	saved.PublishedURL = PublishedURL(s.baseURL, saved.ID)
	if saved.Fields == nil {
		saved.Fields = []form.Field{}
	}
	s.forms[saved.ID] = saved
	return saved.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, id int64, patch FormPatch) (*form.Form, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.forms[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.apply(f)
	return f.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id int64) (*form.Form, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.forms[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.forms, id)
	return f.Clone(), nil
}

func (s *MemoryStore) Close() error { return nil }
