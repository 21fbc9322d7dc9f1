package builder

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"formcraft/internal/engine"
	"formcraft/internal/form"
	"formcraft/internal/store"
)

// PublishResult is returned after a form has been saved.
type PublishResult struct {
	Form     *form.Form           `json:"form"`
	URL      string               `json:"url"`
	Created  bool                 `json:"created"`
	Warnings []engine.ErrorDetail `json:"warnings,omitempty"`
}

// CheckPublish returns a copy of the form together with the outcome of the
// pre-publish checks.
func (s *Session) CheckPublish() (*form.Form, engine.PublishCheck) {
	f := s.Snapshot()
	return f, engine.CheckPublishable(f, s.eval)
}

// Publish checks the session's form and saves it: a form that was never
// saved, or whose stored copy has since been deleted, is created; otherwise
// the stored copy is replaced. Failing checks return a validation *AppError.
func (s *Session) Publish(ctx context.Context, forms store.FormStore) (*PublishResult, error) {
	f, check := s.CheckPublish()
	if !check.OK() {
		s.logger.Debug("Publish refused", zap.Int("errors", len(check.Errors)))
		return nil, engine.ValidationError(check.Errors)
	}

	res := &PublishResult{Warnings: check.Warnings}
	var (
		saved *form.Form
		err   error
	)
	if f.ID != 0 {
		saved, err = forms.Update(ctx, f.ID, store.FormPatch{Title: &f.Title, Fields: f.Fields, Rules: rulesOrEmpty(f.Rules)})
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("Stored form is gone, publishing a new copy", zap.Int64("form_id", f.ID))
			saved, err = nil, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("update form %d: %w", f.ID, err)
	}
	if saved == nil {
		if saved, err = forms.Create(ctx, f); err != nil {
			return nil, fmt.Errorf("create form: %w", err)
		}
		res.Created = true
	}

	s.MarkPersisted(saved)
	res.Form = saved
	res.URL = saved.PublishedURL
	s.logger.Info("Form published",
		zap.Int64("form_id", saved.ID),
		zap.String("url", saved.PublishedURL),
		zap.Bool("created", res.Created),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res, nil
}

func rulesOrEmpty(r []form.Rule) []form.Rule {
	if r == nil {
		return []form.Rule{}
	}
	return r
}
