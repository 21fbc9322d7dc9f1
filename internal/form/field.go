package form

import (
	"fmt"
	"strings"
)

type FieldType string

const (
	TypeText     FieldType = "text"
	TypeEmail    FieldType = "email"
	TypeNumber   FieldType = "number"
	TypeTextarea FieldType = "textarea"
	TypeSelect   FieldType = "select"
	TypeRadio    FieldType = "radio"
	TypeCheckbox FieldType = "checkbox"
	TypeDate     FieldType = "date"
)

// FieldTypes lists every field type in palette order.
var FieldTypes = []FieldType{
	TypeText, TypeEmail, TypeNumber, TypeTextarea,
	TypeSelect, TypeRadio, TypeCheckbox, TypeDate,
}

// ParseFieldType returns the FieldType named by s, or an error for anything
// outside the closed set.
func ParseFieldType(s string) (FieldType, error) {
	t := FieldType(s)
	if t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("unknown field type %q", s)
}

func (t FieldType) Valid() bool {
	switch t {
	case TypeText, TypeEmail, TypeNumber, TypeTextarea,
		TypeSelect, TypeRadio, TypeCheckbox, TypeDate:
		return true
	}
	return false
}

// IsChoice reports whether the type is backed by an options list.
func (t FieldType) IsChoice() bool {
	return t == TypeSelect || t == TypeRadio
}

// CanDriveConditions reports whether fields of this type may be referenced
// by another field's visibility condition.
func (t FieldType) CanDriveConditions() bool {
	switch t {
	case TypeText, TypeEmail, TypeSelect, TypeRadio:
		return true
	}
	return false
}

// PaletteLabel returns the human name shown in the component palette.
func (t FieldType) PaletteLabel() string {
	switch t {
	case TypeText:
		return "Text Input"
	case TypeEmail:
		return "Email"
	case TypeNumber:
		return "Number"
	case TypeTextarea:
		return "Text Area"
	case TypeSelect:
		return "Dropdown"
	case TypeRadio:
		return "Multiple Choice"
	case TypeCheckbox:
		return "Checkbox"
	case TypeDate:
		return "Date Picker"
	}
	panic(fmt.Sprintf("form: unhandled field type %q", string(t)))
}

// InputKind returns the control a renderer should use for the type.
func (t FieldType) InputKind() string {
	switch t {
	case TypeText:
		return "text"
	case TypeEmail:
		return "email"
	case TypeNumber:
		return "number"
	case TypeTextarea:
		return "textarea"
	case TypeSelect:
		return "select"
	case TypeRadio:
		return "radio"
	case TypeCheckbox:
		return "checkbox"
	case TypeDate:
		return "date"
	}
	panic(fmt.Sprintf("form: unhandled field type %q", string(t)))
}

// DefaultLabel is the label a freshly dropped field receives.
func (t FieldType) DefaultLabel() string {
	return t.PaletteLabel() + " Field"
}

// DefaultPlaceholder is the placeholder a freshly dropped field receives.
// Choice and checkbox fields have none.
func (t FieldType) DefaultPlaceholder() string {
	if t.IsChoice() || t == TypeCheckbox {
		return ""
	}
	return "Enter your " + strings.ToLower(t.PaletteLabel()) + "..."
}

type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// DefaultOptions returns the three placeholder options given to new choice fields.
func DefaultOptions() []Option {
	return []Option{
		{Label: "Option 1", Value: "option1"},
		{Label: "Option 2", Value: "option2"},
		{Label: "Option 3", Value: "option3"},
	}
}

// NumberedOption returns the option appended as the n-th entry (1-based).
func NumberedOption(n int) Option {
	return Option{Label: fmt.Sprintf("Option %d", n), Value: fmt.Sprintf("option%d", n)}
}

type Field struct {
	ID          string    `json:"id"`
	Type        FieldType `json:"type"`
	Label       string    `json:"label"`
	Placeholder string    `json:"placeholder,omitempty"`
	Required    bool      `json:"required"`
	Options     []Option  `json:"options,omitempty"`
	Order       int       `json:"order"`
	Logic       *Logic    `json:"logic"`
}

// HasOption reports whether value is one of the field's option values.
func (f *Field) HasOption(value string) bool {
	for _, o := range f.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// DuplicateOptionValues returns option values that appear more than once.
func (f *Field) DuplicateOptionValues() []string {
	seen := make(map[string]int, len(f.Options))
	var dups []string
	for _, o := range f.Options {
		seen[o.Value]++
		if seen[o.Value] == 2 {
			dups = append(dups, o.Value)
		}
	}
	return dups
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	c := f
	if f.Options != nil {
		c.Options = append([]Option(nil), f.Options...)
	}
	c.Logic = f.Logic.Clone()
	return c
}
