package builder

import (
	"go.uber.org/zap"

	"formcraft/internal/engine"
	"formcraft/internal/form"
)

// RenderedField is one visible control of the live preview.
type RenderedField struct {
	ID          string         `json:"id"`
	Type        form.FieldType `json:"type"`
	Input       string         `json:"input"`
	Label       string         `json:"label"`
	Placeholder string         `json:"placeholder,omitempty"`
	Required    bool           `json:"required"`
	Options     []form.Option  `json:"options,omitempty"`
	Value       any            `json:"value,omitempty"`
}

type PreviewResult struct {
	Title  string          `json:"title"`
	Fields []RenderedField `json:"fields"`
	Hidden int             `json:"hidden"`
}

type SubmitResult struct {
	Accepted bool                 `json:"accepted"`
	Errors   []engine.ErrorDetail `json:"errors,omitempty"`
}

// Render lays out the visible fields of f, in order, with their current values.
func Render(f *form.Form, values engine.Values) PreviewResult {
	res := PreviewResult{Title: f.Title, Fields: []RenderedField{}}
	for _, fld := range f.Fields {
		if !engine.IsVisibleIn(f, fld, values) {
			res.Hidden++
			continue
		}
		rf := RenderedField{
			ID:       fld.ID,
			Type:     fld.Type,
			Input:    fld.Type.InputKind(),
			Label:    fld.Label,
			Required: fld.Required,
			Value:    values[fld.ID],
		}
		if fld.Type.IsChoice() {
			rf.Options = append([]form.Option(nil), fld.Options...)
		} else {
			rf.Placeholder = fld.Placeholder
		}
		res.Fields = append(res.Fields, rf)
	}
	return res
}

// SetPreviewValue records the preview input for a field. Unknown ids are
// ignored.
func (s *Session) SetPreviewValue(fieldID string, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.form.FieldByID(fieldID) == nil {
		return false
	}
	if value == nil {
		delete(s.values, fieldID)
	} else {
		s.values[fieldID] = value
	}
	return true
}

func (s *Session) PreviewValues() engine.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(engine.Values, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Preview renders the form with the session's preview values.
func (s *Session) Preview() PreviewResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Render(s.form, s.values)
}

// SubmitPreview validates values (or the session's preview values when nil)
// and simulates acceptance. Nothing leaves the process.
func (s *Session) SubmitPreview(values engine.Values) SubmitResult {
	s.mu.Lock()
	f := s.form.Clone()
	if values == nil {
		values = make(engine.Values, len(s.values))
		for k, v := range s.values {
			values[k] = v
		}
	}
	s.mu.Unlock()

	errs := engine.ValidateSubmission(f, values, s.eval)
	if len(errs) > 0 {
		s.logger.Debug("Preview submission rejected", zap.Int("errors", len(errs)))
		return SubmitResult{Accepted: false, Errors: errs}
	}
	s.logger.Info("Preview submission accepted", zap.String("title", f.Title), zap.Int("fields", len(f.Fields)))
	return SubmitResult{Accepted: true}
}
