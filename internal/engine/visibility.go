package engine

import (
	"fmt"
	"strconv"
	"strings"

	"formcraft/internal/form"
)

// Values maps field ids to the current input of that field: a string for
// text-like and choice inputs, a bool for checkboxes.
type Values map[string]any

// IsVisible evaluates a field's visibility rule against the current values.
// A nil rule, or one with no conditions, is always visible.
func IsVisible(field form.Field, values Values) bool {
	logic := field.Logic
	if logic == nil || len(logic.Conditions) == 0 {
		return true
	}
	results := make([]bool, len(logic.Conditions))
	for i, c := range logic.Conditions {
		results[i] = EvaluateCondition(c, values)
	}
	return combine(logic.Operator, results)
}

// IsVisibleIn is IsVisible with reference checking: a condition whose target
// is missing, does not precede the owner, or cannot drive conditions is never
// satisfied.
func IsVisibleIn(f *form.Form, field form.Field, values Values) bool {
	logic := field.Logic
	if logic == nil || len(logic.Conditions) == 0 {
		return true
	}
	results := make([]bool, len(logic.Conditions))
	for i, c := range logic.Conditions {
		if _, reason := f.ConditionTarget(&field, c); reason != "" {
			results[i] = false
			continue
		}
		results[i] = EvaluateCondition(c, values)
	}
	return combine(logic.Operator, results)
}

// VisibleFields returns the visible fields of f in order.
func VisibleFields(f *form.Form, values Values) []form.Field {
	var out []form.Field
	for _, fld := range f.Fields {
		if IsVisibleIn(f, fld, values) {
			out = append(out, fld)
		}
	}
	return out
}

// VisibilityMap returns field id -> visible for every field of f.
func VisibilityMap(f *form.Form, values Values) map[string]bool {
	vis := make(map[string]bool, len(f.Fields))
	for _, fld := range f.Fields {
		vis[fld.ID] = IsVisibleIn(f, fld, values)
	}
	return vis
}

// EvaluateCondition tests a single condition. An absent value is treated as
// the empty string; unknown operators never match.
func EvaluateCondition(c form.Condition, values Values) bool {
	current, ok := values[c.FieldID]
	if !ok || current == nil {
		current = ""
	}

	switch c.Operator {
	case form.OpEquals:
		s, isString := current.(string)
		return isString && s == c.Value
	case form.OpNotEquals:
		s, isString := current.(string)
		return !isString || s != c.Value
	case form.OpContains:
		return strings.Contains(strings.ToLower(stringValue(current)), strings.ToLower(c.Value))
	case form.OpNotEmpty:
		return strings.TrimSpace(stringValue(current)) != ""
	case form.OpEmpty:
		return strings.TrimSpace(stringValue(current)) == ""
	}
	return false
}

func combine(op form.LogicOperator, results []bool) bool {
	switch op {
	case form.LogicAnd:
		for _, r := range results {
			if !r {
				return false
			}
		}
		return true
	case form.LogicOr:
		for _, r := range results {
			if r {
				return true
			}
		}
		return false
	}
	return false
}

// stringValue coerces an input value to its string form.
func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	}
	return fmt.Sprint(v)
}
