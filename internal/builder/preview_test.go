package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formcraft/internal/engine"
	"formcraft/internal/form"
)

func renderedIDs(res PreviewResult) []string {
	out := make([]string, len(res.Fields))
	for i, f := range res.Fields {
		out[i] = f.ID
	}
	return out
}

// twoFieldSession builds F1 (text) and F2 (text, shown when F1 equals "yes").
func twoFieldSession(t *testing.T) (*Session, string, string) {
	t.Helper()
	s := newTestSession(t)
	f1 := insertText(t, s, 0)
	f2 := insertText(t, s, 1)
	e, _ := s.ConditionEditor(f2.ID)
	require.True(t, e.AddCondition())
	yes := "yes"
	require.True(t, e.UpdateCondition(0, ConditionUpdate{Value: &yes}))
	require.True(t, e.Save())
	return s, f1.ID, f2.ID
}

func TestPreview_ConditionalScenario(t *testing.T) {
	s, f1, f2 := twoFieldSession(t)

	res := s.Preview()
	assert.Equal(t, []string{f1}, renderedIDs(res))
	assert.Equal(t, 1, res.Hidden)

	require.True(t, s.SetPreviewValue(f1, "yes"))
	assert.Equal(t, []string{f1, f2}, renderedIDs(s.Preview()))

	require.True(t, s.SetPreviewValue(f1, "no"))
	assert.Equal(t, []string{f1}, renderedIDs(s.Preview()))
}

func TestPreview_ReorderLeavesConditionFalse(t *testing.T) {
	s, f1, f2 := twoFieldSession(t)

	require.True(t, s.Reorder(f2, 0))
	require.True(t, s.SetPreviewValue(f1, "yes"))
	res := s.Preview()
	assert.Equal(t, []string{f1}, renderedIDs(res))

	// the rule is kept, so moving back revives it
	fld, _ := s.Field(f2)
	require.NotNil(t, fld.Logic)
	require.True(t, s.Reorder(f2, 1))
	require.True(t, s.SetPreviewValue(f1, "yes"))
	assert.Equal(t, []string{f1, f2}, renderedIDs(s.Preview()))
}

func TestPreview_DeletedTargetHidesDependent(t *testing.T) {
	s, f1, f2 := twoFieldSession(t)
	require.True(t, s.Delete(f1))

	var res PreviewResult
	assert.NotPanics(t, func() { res = s.Preview() })
	assert.Empty(t, res.Fields)
	assert.Equal(t, 1, res.Hidden)

	fld, _ := s.Field(f2)
	assert.Equal(t, 0, fld.Order)
}

func TestRender_FieldShape(t *testing.T) {
	s := newTestSession(t)
	text := insertText(t, s, 0)
	sel, _ := s.InsertAt(1, TemplateFor(form.TypeSelect))
	require.True(t, s.SetPreviewValue(text.ID, "abc"))

	res := Render(s.Snapshot(), s.PreviewValues())
	require.Len(t, res.Fields, 2)
	assert.Equal(t, form.DefaultTitle, res.Title)

	assert.Equal(t, "text", res.Fields[0].Input)
	assert.Equal(t, "abc", res.Fields[0].Value)
	assert.Equal(t, text.Placeholder, res.Fields[0].Placeholder)
	assert.Empty(t, res.Fields[0].Options)

	assert.Equal(t, "select", res.Fields[1].Input)
	assert.Equal(t, sel.Options, res.Fields[1].Options)
	assert.Nil(t, res.Fields[1].Value)
}

func TestSetPreviewValue(t *testing.T) {
	s := newTestSession(t)
	fld := insertText(t, s, 0)

	assert.False(t, s.SetPreviewValue("missing", "x"))
	require.True(t, s.SetPreviewValue(fld.ID, "x"))
	assert.Equal(t, engine.Values{fld.ID: "x"}, s.PreviewValues())

	require.True(t, s.SetPreviewValue(fld.ID, nil))
	assert.Empty(t, s.PreviewValues())
}

func TestSubmitPreview(t *testing.T) {
	s := newTestSession(t)
	name := insertText(t, s, 0)
	require.True(t, s.PropertyEditor(name.ID).SetRequired(true))

	res := s.SubmitPreview(nil)
	assert.False(t, res.Accepted)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, name.ID, res.Errors[0].Field)

	require.True(t, s.SetPreviewValue(name.ID, "Ada"))
	assert.True(t, s.SubmitPreview(nil).Accepted)

	// explicit values take precedence over the session's
	assert.False(t, s.SubmitPreview(engine.Values{}).Accepted)
}
