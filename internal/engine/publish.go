package engine

import (
	"fmt"
	"strings"

	"formcraft/internal/form"
)

// PublishCheck is the outcome of the pre-publish checks. Errors block
// publishing; warnings are reported alongside a successful publish.
type PublishCheck struct {
	Errors   []ErrorDetail `json:"errors,omitempty"`
	Warnings []ErrorDetail `json:"warnings,omitempty"`
}

func (p PublishCheck) OK() bool { return len(p.Errors) == 0 }

// CheckPublishable runs the checks a form must pass before it is handed to
// the persistence layer.
func CheckPublishable(f *form.Form, eval ExpressionEvaluator) PublishCheck {
	var pc PublishCheck

	if strings.TrimSpace(f.Title) == "" {
		pc.Errors = append(pc.Errors, ErrorDetail{Field: "title", Rule: "required", Message: "Please enter a form title before publishing"})
	}
	if len(f.Fields) == 0 {
		pc.Errors = append(pc.Errors, ErrorDetail{Rule: "min_fields", Message: "Add at least one field before publishing"})
	}
	if err := f.CheckOrder(); err != nil {
		pc.Errors = append(pc.Errors, ErrorDetail{Rule: "order", Message: err.Error()})
	}

	seen := make(map[string]bool, len(f.Fields))
	for i := range f.Fields {
		fld := &f.Fields[i]
		if seen[fld.ID] {
			pc.Errors = append(pc.Errors, ErrorDetail{Field: fld.ID, Rule: "unique_id", Message: fmt.Sprintf("duplicate field id %s", fld.ID)})
		}
		seen[fld.ID] = true

		if !fld.Type.Valid() {
			pc.Errors = append(pc.Errors, ErrorDetail{Field: fld.ID, Rule: "type", Message: fmt.Sprintf("unknown field type %q", fld.Type)})
			continue
		}
		if fld.Type.IsChoice() {
			if len(fld.Options) == 0 {
				pc.Errors = append(pc.Errors, ErrorDetail{Field: fld.ID, Rule: "options", Message: fmt.Sprintf("%s needs at least one option", fld.Label)})
			}
			for _, v := range fld.DuplicateOptionValues() {
				pc.Errors = append(pc.Errors, ErrorDetail{Field: fld.ID, Rule: "unique_option", Message: fmt.Sprintf("option value %q is used more than once", v)})
			}
		}
		if fld.Logic != nil && len(fld.Logic.Conditions) > 0 && !fld.Logic.Operator.Valid() {
			pc.Errors = append(pc.Errors, ErrorDetail{Field: fld.ID, Rule: "logic", Message: fmt.Sprintf("unknown logic operator %q", fld.Logic.Operator)})
		}
	}

	for _, r := range f.Rules {
		if err := eval.Check(r.Expression); err != nil {
			pc.Errors = append(pc.Errors, ErrorDetail{Rule: "expression", Message: err.Error()})
		}
	}

	for _, d := range f.DanglingConditions() {
		pc.Warnings = append(pc.Warnings, ErrorDetail{
			Field:   d.FieldID,
			Rule:    "condition",
			Message: fmt.Sprintf("condition %d never matches: %s", d.Index+1, d.Reason),
		})
	}
	return pc
}
