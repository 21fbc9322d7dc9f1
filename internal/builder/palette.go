package builder

import (
	"encoding/json"
	"fmt"

	"formcraft/internal/form"
)

type PaletteEntry struct {
	Type  form.FieldType `json:"type"`
	Label string         `json:"label"`
	Icon  string         `json:"icon"`
}

// Palette returns the draggable field types in display order.
func Palette() []PaletteEntry {
	entries := make([]PaletteEntry, len(form.FieldTypes))
	for i, t := range form.FieldTypes {
		entries[i] = PaletteEntry{Type: t, Label: t.PaletteLabel(), Icon: paletteIcon(t)}
	}
	return entries
}

func paletteIcon(t form.FieldType) string {
	switch t {
	case form.TypeText:
		return "Type"
	case form.TypeEmail:
		return "Mail"
	case form.TypeNumber:
		return "Hash"
	case form.TypeTextarea:
		return "AlignLeft"
	case form.TypeSelect:
		return "ChevronDown"
	case form.TypeRadio:
		return "Circle"
	case form.TypeCheckbox:
		return "Check"
	case form.TypeDate:
		return "Calendar"
	}
	panic(fmt.Sprintf("builder: unhandled field type %q", string(t)))
}

// Template is the content of a palette drag: everything a new field needs
// except its id and order.
type Template struct {
	Type        form.FieldType `json:"type"`
	Label       string         `json:"label,omitempty"`
	Placeholder string         `json:"placeholder,omitempty"`
	Required    bool           `json:"required,omitempty"`
	Options     []form.Option  `json:"options,omitempty"`
}

// TemplateFor returns the template the palette produces for t.
func TemplateFor(t form.FieldType) Template {
	return Template{
		Type:        t,
		Label:       t.DefaultLabel(),
		Placeholder: t.DefaultPlaceholder(),
	}
}

// ParseDropPayload decodes a drag payload. Any id carried by the payload is
// ignored; the session assigns a fresh one.
func ParseDropPayload(raw []byte) (Template, error) {
	var tmpl Template
	if err := json.Unmarshal(raw, &tmpl); err != nil {
		return Template{}, fmt.Errorf("decode drop payload: %w", err)
	}
	if !tmpl.Type.Valid() {
		return Template{}, fmt.Errorf("decode drop payload: unknown field type %q", tmpl.Type)
	}
	return tmpl, nil
}

func (t Template) newField(id string) form.Field {
	f := form.Field{
		ID:          id,
		Type:        t.Type,
		Label:       t.Label,
		Placeholder: t.Placeholder,
		Required:    t.Required,
	}
	if f.Label == "" {
		f.Label = t.Type.DefaultLabel()
	}
	if f.Placeholder == "" && !t.Type.IsChoice() {
		f.Placeholder = t.Type.DefaultPlaceholder()
	}
	if t.Type.IsChoice() {
		if len(t.Options) > 0 {
			f.Options = append([]form.Option(nil), t.Options...)
		} else {
			f.Options = form.DefaultOptions()
		}
	}
	return f
}
