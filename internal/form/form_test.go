package form

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleForm() *Form {
	return &Form{
		ID:    7,
		Title: "Contact",
		Fields: []Field{
			{ID: "1", Type: TypeText, Label: "Name", Placeholder: "Your name", Required: true, Order: 0},
			{ID: "2", Type: TypeRadio, Label: "Pick", Order: 1, Options: DefaultOptions()},
			{
				ID: "3", Type: TypeTextarea, Label: "Why", Order: 2,
				Logic: &Logic{
					Operator: LogicOr,
					Conditions: []Condition{
						{FieldID: "1", Operator: OpContains, Value: "ann"},
						{FieldID: "2", Operator: OpEquals, Value: "option2"},
					},
				},
			},
		},
		Rules:        []Rule{{Expression: `values["1"] == "x"`, Message: "no x"}},
		CreatedAt:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		PublishedURL: "https://formcraft.app/forms/7",
	}
}

func TestFormJSONRoundTrip(t *testing.T) {
	orig := sampleForm()
	raw, err := json.Marshal(orig)
	require.NoError(t, err)

	var back Form
	require.NoError(t, json.Unmarshal(raw, &back))

	if diff := cmp.Diff(orig, &back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldJSONShape(t *testing.T) {
	f := sampleForm().Fields[2]
	raw, err := json.Marshal(f)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	logic := generic["logic"].(map[string]any)
	conds := logic["conditions"].([]any)
	first := conds[0].(map[string]any)
	assert.Equal(t, "1", first["fieldId"])
	assert.Equal(t, "contains", first["operator"])
	assert.Equal(t, "OR", logic["operator"])

	plain, err := json.Marshal(sampleForm().Fields[0])
	require.NoError(t, err)
	assert.Contains(t, string(plain), `"logic":null`)
}

func TestParseFieldType(t *testing.T) {
	for _, ft := range FieldTypes {
		got, err := ParseFieldType(string(ft))
		require.NoError(t, err)
		assert.Equal(t, ft, got)
		assert.NotEmpty(t, ft.InputKind())
		assert.NotEmpty(t, ft.PaletteLabel())
	}
	_, err := ParseFieldType("signature")
	assert.Error(t, err)
}

func TestDefaultLabels(t *testing.T) {
	assert.Equal(t, "Text Input Field", TypeText.DefaultLabel())
	assert.Equal(t, "Enter your email...", TypeEmail.DefaultPlaceholder())
	assert.Equal(t, "", TypeSelect.DefaultPlaceholder())
	assert.Equal(t, Option{Label: "Option 4", Value: "option4"}, NumberedOption(4))
}

func TestNormalizeSortsAndRenumbers(t *testing.T) {
	f := &Form{Fields: []Field{
		{ID: "c", Order: 9},
		{ID: "a", Order: 1},
		{ID: "b", Order: 4},
	}}
	require.Error(t, f.CheckOrder())

	f.Normalize()
	require.NoError(t, f.CheckOrder())
	assert.Equal(t, "a", f.Fields[0].ID)
	assert.Equal(t, "b", f.Fields[1].ID)
	assert.Equal(t, "c", f.Fields[2].ID)
}

func TestDanglingConditions(t *testing.T) {
	f := sampleForm()
	assert.Empty(t, f.DanglingConditions())

	// move the owner to the top so both targets follow it
	f.Fields = []Field{f.Fields[2], f.Fields[0], f.Fields[1]}
	f.Renumber()
	dangling := f.DanglingConditions()
	require.Len(t, dangling, 2)
	assert.Equal(t, "3", dangling[0].FieldID)
	assert.Equal(t, "target field does not precede the owner", dangling[0].Reason)

	g := sampleForm()
	g.Fields = g.Fields[1:]
	g.Renumber()
	dangling = g.DanglingConditions()
	require.Len(t, dangling, 1)
	assert.Equal(t, "1", dangling[0].Target)
	assert.Equal(t, "target field does not exist", dangling[0].Reason)
}

func TestConditionTargetRejectsIneligibleType(t *testing.T) {
	f := &Form{Fields: []Field{
		{ID: "n", Type: TypeNumber, Order: 0},
		{ID: "x", Type: TypeText, Order: 1, Logic: &Logic{Operator: LogicAnd, Conditions: []Condition{{FieldID: "n", Operator: OpNotEmpty}}}},
	}}
	_, reason := f.ConditionTarget(&f.Fields[1], f.Fields[1].Logic.Conditions[0])
	assert.Contains(t, reason, "number")
}

func TestCloneIsDeep(t *testing.T) {
	orig := sampleForm()
	c := orig.Clone()
	c.Fields[1].Options[0].Label = "changed"
	c.Fields[2].Logic.Conditions[0].Value = "changed"
	c.Rules[0].Message = "changed"

	assert.Equal(t, "Option 1", orig.Fields[1].Options[0].Label)
	assert.Equal(t, "ann", orig.Fields[2].Logic.Conditions[0].Value)
	assert.Equal(t, "no x", orig.Rules[0].Message)
}

func TestDuplicateOptionValues(t *testing.T) {
	f := Field{Type: TypeSelect, Options: []Option{
		{Label: "A", Value: "a"}, {Label: "B", Value: "a"}, {Label: "C", Value: "a"}, {Label: "D", Value: "d"},
	}}
	assert.Equal(t, []string{"a"}, f.DuplicateOptionValues())
	assert.True(t, f.HasOption("d"))
	assert.False(t, f.HasOption("z"))
}
