package form

import (
	"fmt"
	"sort"
	"time"
)

const DefaultTitle = "Untitled Form"

// Rule is a form-level submission check. Expression is evaluated against the
// submitted values; a true result means the rule is violated.
type Rule struct {
	Expression string `json:"expression"`
	Message    string `json:"message,omitempty"`
}

type Form struct {
	ID           int64     `json:"id,omitempty"`
	Title        string    `json:"title"`
	Fields       []Field   `json:"fields"`
	Rules        []Rule    `json:"rules,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
	PublishedURL string    `json:"publishedUrl,omitempty"`
}

// New returns an empty form with the default title.
func New() *Form {
	return &Form{Title: DefaultTitle, Fields: []Field{}}
}

// FieldByID returns a pointer to the field with the given id, or nil.
func (f *Form) FieldByID(id string) *Field {
	if i := f.IndexOf(id); i >= 0 {
		return &f.Fields[i]
	}
	return nil
}

// IndexOf returns the sequence position of the field, or -1.
func (f *Form) IndexOf(id string) int {
	for i := range f.Fields {
		if f.Fields[i].ID == id {
			return i
		}
	}
	return -1
}

// Renumber sets every field's order to its sequence index.
func (f *Form) Renumber() {
	for i := range f.Fields {
		f.Fields[i].Order = i
	}
}

// Normalize sorts fields by their order value and then renumbers them densely.
// Used on forms that arrive from outside the editor.
func (f *Form) Normalize() {
	if f.Fields == nil {
		f.Fields = []Field{}
	}
	sort.SliceStable(f.Fields, func(i, j int) bool {
		return f.Fields[i].Order < f.Fields[j].Order
	})
	f.Renumber()
}

// CheckOrder returns an error if order values are not exactly 0..N-1 in
// sequence position.
func (f *Form) CheckOrder() error {
	for i, fld := range f.Fields {
		if fld.Order != i {
			return fmt.Errorf("field %s at position %d has order %d", fld.ID, i, fld.Order)
		}
	}
	return nil
}

// DanglingCondition identifies a condition that can never be satisfied
// because its target no longer qualifies.
type DanglingCondition struct {
	FieldID string `json:"fieldId"`
	Index   int    `json:"index"`
	Target  string `json:"target"`
	Reason  string `json:"reason"`
}

// ConditionTarget returns the field a condition owned by owner may reference,
// or a reason why the reference is dangling.
func (f *Form) ConditionTarget(owner *Field, c Condition) (*Field, string) {
	target := f.FieldByID(c.FieldID)
	switch {
	case target == nil:
		return nil, "target field does not exist"
	case target.Order >= owner.Order:
		return nil, "target field does not precede the owner"
	case !target.Type.CanDriveConditions():
		return nil, fmt.Sprintf("fields of type %s cannot drive conditions", target.Type)
	}
	return target, ""
}

// DanglingConditions lists every condition whose target is missing, not
// earlier in the form, or of an ineligible type.
func (f *Form) DanglingConditions() []DanglingCondition {
	var out []DanglingCondition
	for i := range f.Fields {
		owner := &f.Fields[i]
		if owner.Logic == nil {
			continue
		}
		for ci, c := range owner.Logic.Conditions {
			if _, reason := f.ConditionTarget(owner, c); reason != "" {
				out = append(out, DanglingCondition{
					FieldID: owner.ID,
					Index:   ci,
					Target:  c.FieldID,
					Reason:  reason,
				})
			}
		}
	}
	return out
}

// Clone returns a deep copy of the form.
func (f *Form) Clone() *Form {
	if f == nil {
		return nil
	}
	c := *f
	c.Fields = make([]Field, len(f.Fields))
	for i, fld := range f.Fields {
		c.Fields[i] = fld.Clone()
	}
	if f.Rules != nil {
		c.Rules = append([]Rule(nil), f.Rules...)
	}
	return &c
}
