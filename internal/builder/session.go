package builder

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"formcraft/internal/engine"
	"formcraft/internal/form"
)

// Session owns one form while it is being edited. All mutations go through
// its methods; every method is total and treats unknown ids or out-of-range
// positions as no-ops.
type Session struct {
	ID string

	mu         sync.Mutex
	form       *form.Form
	ids        *IDGenerator
	values     engine.Values
	eval       engine.ExpressionEvaluator
	logger     *zap.Logger
	lastActive time.Time
}

// NewSession starts a session over a copy of f, or over a new empty form
// when f is nil.
func NewSession(id string, f *form.Form, eval engine.ExpressionEvaluator, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if eval == nil {
		eval = engine.NewExprLangEvaluator()
	}
	s := &Session{
		ID:         id,
		ids:        NewIDGenerator(),
		values:     engine.Values{},
		eval:       eval,
		logger:     logger.With(zap.String("session", id)),
		lastActive: time.Now(),
	}
	s.load(f)
	return s
}

func (s *Session) load(f *form.Form) {
	if f == nil {
		f = form.New()
	} else {
		f = f.Clone()
		f.Normalize()
	}
	for _, fld := range f.Fields {
		s.ids.Observe(fld.ID)
	}
	s.form = f
	s.values = engine.Values{}
}

// Load replaces the form under edit.
func (s *Session) Load(f *form.Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(f)
}

// Snapshot returns a deep copy of the form under edit.
func (s *Session) Snapshot() *form.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.Clone()
}

// Field returns a copy of the field with the given id.
func (s *Session) Field(id string) (form.Field, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fld := s.form.FieldByID(id)
	if fld == nil {
		return form.Field{}, false
	}
	return fld.Clone(), true
}

func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Title = title
}

// SetRules replaces the form-level submission rules.
func (s *Session) SetRules(rules []form.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Rules = append([]form.Rule(nil), rules...)
}

// MarkPersisted records the identity the persistence layer gave the form.
func (s *Session) MarkPersisted(saved *form.Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.ID = saved.ID
	s.form.CreatedAt = saved.CreatedAt
	s.form.PublishedURL = saved.PublishedURL
}

// InsertAt creates a field from tmpl and inserts it at position, clamped to
// [0, len]. Returns false if the template's type is unknown.
func (s *Session) InsertAt(position int, tmpl Template) (form.Field, bool) {
	if !tmpl.Type.Valid() {
		return form.Field{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	fld := tmpl.newField(s.ids.Next())
	n := len(s.form.Fields)
	position = clamp(position, 0, n)

	fields := make([]form.Field, 0, n+1)
	fields = append(fields, s.form.Fields[:position]...)
	fields = append(fields, fld)
	fields = append(fields, s.form.Fields[position:]...)
	s.form.Fields = fields
	s.form.Renumber()
	s.values = engine.Values{}

	return s.form.Fields[position].Clone(), true
}

// Drop inserts a field from a raw palette drag payload. A payload that
// cannot be parsed is logged and discarded.
func (s *Session) Drop(position int, payload []byte) (form.Field, bool) {
	tmpl, err := ParseDropPayload(payload)
	if err != nil {
		s.logger.Warn("Discarding palette drop", zap.Int("position", position), zap.Error(err))
		return form.Field{}, false
	}
	return s.InsertAt(position, tmpl)
}

// Reorder moves the field to newPosition with list-move semantics: the field
// is removed first and reinserted at newPosition in the shortened list.
func (s *Session) Reorder(fieldID string, newPosition int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.form.IndexOf(fieldID)
	if from < 0 {
		return false
	}
	to := clamp(newPosition, 0, len(s.form.Fields)-1)
	if to == from {
		return false
	}

	moved := s.form.Fields[from]
	fields := append(s.form.Fields[:from:from], s.form.Fields[from+1:]...)
	fields = append(fields[:to], append([]form.Field{moved}, fields[to:]...)...)
	s.form.Fields = fields
	s.form.Renumber()
	s.values = engine.Values{}
	return true
}

// FieldUpdate is a shallow partial update. Options and Logic replace the
// previous value when present; ClearLogic sets logic to null.
type FieldUpdate struct {
	Label       *string       `json:"label,omitempty"`
	Placeholder *string       `json:"placeholder,omitempty"`
	Required    *bool         `json:"required,omitempty"`
	Options     []form.Option `json:"options,omitempty"`
	Logic       *form.Logic   `json:"logic,omitempty"`
	ClearLogic  bool          `json:"-"`
}

// UnmarshalJSON distinguishes an explicit "logic": null (clear the rule)
// from an absent key (leave it alone).
func (u *FieldUpdate) UnmarshalJSON(data []byte) error {
	type plain FieldUpdate
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	if raw, ok := keys["logic"]; ok && bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		p.ClearLogic = true
	}
	*u = FieldUpdate(p)
	return nil
}

// Update merges u into the field. id, type and order are never changed.
func (s *Session) Update(fieldID string, u FieldUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(fieldID, u)
}

func (s *Session) update(fieldID string, u FieldUpdate) bool {
	fld := s.form.FieldByID(fieldID)
	if fld == nil {
		return false
	}
	if u.Label != nil {
		fld.Label = *u.Label
	}
	if u.Placeholder != nil {
		fld.Placeholder = *u.Placeholder
	}
	if u.Required != nil {
		fld.Required = *u.Required
	}
	if u.Options != nil {
		fld.Options = append([]form.Option{}, u.Options...)
	}
	if u.ClearLogic {
		fld.Logic = nil
	} else if u.Logic != nil {
		fld.Logic = u.Logic.Clone()
	}
	return true
}

// editField computes an update from the current field under the session lock
// and applies it through update.
func (s *Session) editField(fieldID string, fn func(fld form.Field) (FieldUpdate, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	fld := s.form.FieldByID(fieldID)
	if fld == nil {
		return false
	}
	u, ok := fn(fld.Clone())
	if !ok {
		return false
	}
	return s.update(fieldID, u)
}

// Delete removes the field and compacts order. Conditions elsewhere that
// referenced it are left in place and never match.
func (s *Session) Delete(fieldID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.form.IndexOf(fieldID)
	if i < 0 {
		return false
	}
	s.form.Fields = append(s.form.Fields[:i:i], s.form.Fields[i+1:]...)
	s.form.Renumber()
	s.values = engine.Values{}
	return true
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
