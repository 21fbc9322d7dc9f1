package builder

import "formcraft/internal/form"

// PropertyEditor edits the configuration of a single field. Every operation
// is expressed as a FieldUpdate applied by the owning session.
type PropertyEditor struct {
	session *Session
	fieldID string
}

func (s *Session) PropertyEditor(fieldID string) *PropertyEditor {
	return &PropertyEditor{session: s, fieldID: fieldID}
}

func (p *PropertyEditor) SetLabel(label string) bool {
	return p.session.Update(p.fieldID, FieldUpdate{Label: &label})
}

func (p *PropertyEditor) SetPlaceholder(placeholder string) bool {
	return p.session.Update(p.fieldID, FieldUpdate{Placeholder: &placeholder})
}

func (p *PropertyEditor) SetRequired(required bool) bool {
	return p.session.Update(p.fieldID, FieldUpdate{Required: &required})
}

// AddOption appends "Option N" / "optionN" where N is the new option count.
// If optionN is already taken, N is bumped until the value is unique.
func (p *PropertyEditor) AddOption() bool {
	return p.session.editField(p.fieldID, func(fld form.Field) (FieldUpdate, bool) {
		n := len(fld.Options) + 1
		for fld.HasOption(form.NumberedOption(n).Value) {
			n++
		}
		opts := append(fld.Options, form.NumberedOption(n))
		return FieldUpdate{Options: opts}, true
	})
}

// RemoveOption deletes the option at index. It refuses to leave a choice
// field without options.
func (p *PropertyEditor) RemoveOption(index int) bool {
	return p.session.editField(p.fieldID, func(fld form.Field) (FieldUpdate, bool) {
		if index < 0 || index >= len(fld.Options) {
			return FieldUpdate{}, false
		}
		if fld.Type.IsChoice() && len(fld.Options) == 1 {
			return FieldUpdate{}, false
		}
		opts := append(fld.Options[:index:index], fld.Options[index+1:]...)
		return FieldUpdate{Options: opts}, true
	})
}

func (p *PropertyEditor) UpdateOptionLabel(index int, label string) bool {
	return p.session.editField(p.fieldID, func(fld form.Field) (FieldUpdate, bool) {
		if index < 0 || index >= len(fld.Options) {
			return FieldUpdate{}, false
		}
		fld.Options[index].Label = label
		return FieldUpdate{Options: fld.Options}, true
	})
}
