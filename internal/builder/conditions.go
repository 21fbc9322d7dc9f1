package builder

import (
	"sort"

	"formcraft/internal/form"
)

// EligibleFields returns the fields that field's conditions may reference:
// earlier in the form and of a type that can drive conditions, by order.
func EligibleFields(f *form.Form, field form.Field) []form.Field {
	var out []form.Field
	for _, candidate := range f.Fields {
		if candidate.Order < field.Order && candidate.Type.CanDriveConditions() {
			out = append(out, candidate.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// ConditionUpdate is a partial update of one condition.
type ConditionUpdate struct {
	FieldID  *string                 `json:"fieldId,omitempty"`
	Operator *form.ConditionOperator `json:"operator,omitempty"`
	Value    *string                 `json:"value,omitempty"`
}

// ConditionEditor accumulates changes to one field's visibility rule and
// commits them with Save.
type ConditionEditor struct {
	session    *Session
	fieldID    string
	conditions []form.Condition
	operator   form.LogicOperator
}

// ConditionEditor opens an editor seeded from the field's current rule.
func (s *Session) ConditionEditor(fieldID string) (*ConditionEditor, bool) {
	fld, ok := s.Field(fieldID)
	if !ok {
		return nil, false
	}
	e := &ConditionEditor{session: s, fieldID: fieldID, operator: form.LogicAnd}
	if fld.Logic != nil {
		e.conditions = append([]form.Condition(nil), fld.Logic.Conditions...)
		if fld.Logic.Operator.Valid() {
			e.operator = fld.Logic.Operator
		}
	}
	return e, true
}

// Eligible returns the current selection pool for condition targets.
func (e *ConditionEditor) Eligible() []form.Field {
	f := e.session.Snapshot()
	owner := f.FieldByID(e.fieldID)
	if owner == nil {
		return nil
	}
	return EligibleFields(f, *owner)
}

func (e *ConditionEditor) Conditions() []form.Condition {
	return append([]form.Condition(nil), e.conditions...)
}

func (e *ConditionEditor) Operator() form.LogicOperator { return e.operator }

// AddCondition appends an equals condition on the first eligible field.
func (e *ConditionEditor) AddCondition() bool {
	eligible := e.Eligible()
	if len(eligible) == 0 {
		return false
	}
	e.conditions = append(e.conditions, form.Condition{
		FieldID:  eligible[0].ID,
		Operator: form.OpEquals,
		Value:    "",
	})
	return true
}

// UpdateCondition merges u into the condition at index. Pointing the
// condition at a different field discards the old value; a target outside
// the eligible pool or an unknown operator refuses the whole update.
func (e *ConditionEditor) UpdateCondition(index int, u ConditionUpdate) bool {
	if index < 0 || index >= len(e.conditions) {
		return false
	}
	if u.Operator != nil && !u.Operator.Valid() {
		return false
	}
	c := e.conditions[index]
	if u.FieldID != nil && *u.FieldID != c.FieldID {
		if !containsField(e.Eligible(), *u.FieldID) {
			return false
		}
		c.FieldID = *u.FieldID
		c.Value = ""
	}
	if u.Operator != nil {
		c.Operator = *u.Operator
	}
	if u.Value != nil {
		c.Value = *u.Value
	}
	e.conditions[index] = c
	return true
}

func (e *ConditionEditor) RemoveCondition(index int) bool {
	if index < 0 || index >= len(e.conditions) {
		return false
	}
	e.conditions = append(e.conditions[:index:index], e.conditions[index+1:]...)
	return true
}

// Clear drops every accumulated condition.
func (e *ConditionEditor) Clear() {
	e.conditions = nil
}

func (e *ConditionEditor) SetOperator(op form.LogicOperator) bool {
	if !op.Valid() {
		return false
	}
	e.operator = op
	return true
}

// Save commits the accumulated rule to the field, or clears it when there
// are no conditions.
func (e *ConditionEditor) Save() bool {
	if len(e.conditions) == 0 {
		return e.session.Update(e.fieldID, FieldUpdate{ClearLogic: true})
	}
	return e.session.Update(e.fieldID, FieldUpdate{Logic: &form.Logic{
		Conditions: append([]form.Condition(nil), e.conditions...),
		Operator:   e.operator,
	}})
}

func containsField(fields []form.Field, id string) bool {
	for _, f := range fields {
		if f.ID == id {
			return true
		}
	}
	return false
}
