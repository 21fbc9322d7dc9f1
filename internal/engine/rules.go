package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"formcraft/internal/form"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const dateLayout = "2006-01-02"

// ValidateSubmission checks submitted values against the form. Only visible
// fields are validated; form rules run after the field checks pass.
func ValidateSubmission(f *form.Form, values Values, eval ExpressionEvaluator) []ErrorDetail {
	visible := VisibilityMap(f, values)

	var errs []ErrorDetail
	for i := range f.Fields {
		fld := &f.Fields[i]
		if !visible[fld.ID] {
			continue
		}
		if detail := EvaluateFieldInput(fld, values[fld.ID]); detail != nil {
			errs = append(errs, *detail)
		}
	}
	if len(errs) > 0 || len(f.Rules) == 0 {
		return errs
	}

	env := map[string]any{
		"values":  map[string]any(values),
		"visible": visible,
	}
	for _, r := range f.Rules {
		if detail := EvaluateFormRule(eval, r, env); detail != nil {
			errs = append(errs, *detail)
		}
	}
	return errs
}

// EvaluateFieldInput validates one field's submitted value.
// Returns nil if the value is acceptable.
func EvaluateFieldInput(fld *form.Field, raw any) *ErrorDetail {
	if fld.Type == form.TypeCheckbox {
		if fld.Required && !isChecked(raw) {
			return &ErrorDetail{Field: fld.ID, Rule: "required", Message: fmt.Sprintf("%s must be checked", fld.Label)}
		}
		return nil
	}

	s := strings.TrimSpace(stringValue(raw))
	if s == "" {
		if fld.Required {
			return &ErrorDetail{Field: fld.ID, Rule: "required", Message: fmt.Sprintf("%s is required", fld.Label)}
		}
		return nil
	}

	switch fld.Type {
	case form.TypeText, form.TypeTextarea:
		return nil
	case form.TypeEmail:
		if !emailPattern.MatchString(s) {
			return &ErrorDetail{Field: fld.ID, Rule: "email", Message: fmt.Sprintf("%s must be a valid email address", fld.Label)}
		}
	case form.TypeNumber:
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return &ErrorDetail{Field: fld.ID, Rule: "number", Message: fmt.Sprintf("%s must be a number", fld.Label)}
		}
	case form.TypeDate:
		if _, err := time.Parse(dateLayout, s); err != nil {
			return &ErrorDetail{Field: fld.ID, Rule: "date", Message: fmt.Sprintf("%s must be a date (YYYY-MM-DD)", fld.Label)}
		}
	case form.TypeSelect, form.TypeRadio:
		if !fld.HasOption(s) {
			return &ErrorDetail{Field: fld.ID, Rule: "option", Message: fmt.Sprintf("%s must be one of the listed options", fld.Label)}
		}
	case form.TypeCheckbox:
		// handled above
	}
	return nil
}

// EvaluateFormRule runs a single form rule. A true expression is a violation.
func EvaluateFormRule(eval ExpressionEvaluator, r form.Rule, env map[string]any) *ErrorDetail {
	violated, err := eval.EvaluateBool(r.Expression, env)
	if err != nil {
		return &ErrorDetail{Rule: "expression", Message: fmt.Sprintf("rule evaluation error: %v", err)}
	}
	if !violated {
		return nil
	}
	msg := r.Message
	if msg == "" {
		msg = "Expression rule violated"
	}
	return &ErrorDetail{Rule: "expression", Message: msg}
}

func isChecked(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "true" || val == "on"
	}
	return false
}
