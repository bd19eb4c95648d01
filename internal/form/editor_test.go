package form

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/formdesk/internal/model"
)

func TestEditor_AddField(t *testing.T) {
	e := NewEditor(bugForm())

	fld, err := e.AddField(model.FormField{Type: model.FieldText, Label: "Version", SectionID: "S1"}, 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fld.ID, "fld-"), "generated id %q", fld.ID)
	assert.Equal(t, 0, fld.Order)
	assert.Equal(t, []string{fld.ID, "steps"}, e.FieldIDs("S1"))
	assert.NoError(t, model.ValidateForm(e.Form()))

	t.Run("duplicate id", func(t *testing.T) {
		_, err := e.AddField(model.FormField{ID: "steps", Type: model.FieldText, Label: "x"}, -1)
		assert.ErrorIs(t, err, ErrDuplicateID)
	})

	t.Run("unknown section", func(t *testing.T) {
		_, err := e.AddField(model.FormField{Type: model.FieldText, Label: "x", SectionID: "nope"}, -1)
		assert.ErrorIs(t, err, ErrSectionNotFound)
	})

	t.Run("options dropped for non-choice types", func(t *testing.T) {
		fld, err := e.AddField(model.FormField{Type: model.FieldTextarea, Label: "x", Options: []string{"a"}}, -1)
		require.NoError(t, err)
		assert.Nil(t, fld.Options)
		assert.Equal(t, 1, fld.Order)
	})
}

func TestEditor_UpdateField(t *testing.T) {
	e := NewEditor(bugForm())

	label := "What kind of ticket?"
	opts := []string{"bug", "feature", "question"}
	fld, err := e.UpdateField("type", FieldPatch{Label: &label, Options: &opts})
	require.NoError(t, err)
	assert.Equal(t, label, fld.Label)
	assert.Equal(t, opts, fld.Options)

	t.Run("section change moves the field", func(t *testing.T) {
		sec := "S0"
		fld, err := e.UpdateField("steps", FieldPatch{SectionID: &sec})
		require.NoError(t, err)
		assert.Equal(t, "S0", fld.SectionID)
		assert.Equal(t, 1, fld.Order)
		assert.Equal(t, []string{"summary", "steps"}, e.FieldIDs("S0"))
		assert.Empty(t, e.FieldIDs("S1"))
	})

	t.Run("order change reorders within the section", func(t *testing.T) {
		zero := 0
		_, err := e.UpdateField("steps", FieldPatch{Order: &zero})
		require.NoError(t, err)
		assert.Equal(t, []string{"steps", "summary"}, e.FieldIDs("S0"))
	})

	t.Run("type change clears options", func(t *testing.T) {
		typ := model.FieldText
		fld, err := e.UpdateField("type", FieldPatch{Type: &typ})
		require.NoError(t, err)
		assert.Nil(t, fld.Options)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := e.UpdateField("ghost", FieldPatch{Label: &label})
		assert.ErrorIs(t, err, ErrFieldNotFound)
	})

	t.Run("order out of range", func(t *testing.T) {
		five := 5
		_, err := e.UpdateField("steps", FieldPatch{Order: &five})
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	})
}

func TestEditor_RemoveField(t *testing.T) {
	e := NewEditor(bugForm())
	_, err := e.AddField(model.FormField{ID: "note", Type: model.FieldText, Label: "Note"}, 0)
	require.NoError(t, err)

	require.NoError(t, e.RemoveField("note"))
	assert.Equal(t, []string{"type"}, e.FieldIDs(""))
	assert.Equal(t, 0, e.Form().Field("type").Order)

	t.Run("trigger field removal detaches the rule", func(t *testing.T) {
		require.NoError(t, e.RemoveField("type"))
		s1 := e.Form().Section("S1")
		assert.Empty(t, s1.ShowIfFieldID)
		assert.True(t, s1.HideByDefault)
		assert.NoError(t, model.ValidateForm(e.Form()))
	})

	assert.ErrorIs(t, e.RemoveField("ghost"), ErrFieldNotFound)
}

func TestEditor_Sections(t *testing.T) {
	e := NewEditor(bugForm())

	sec, err := e.AddSection(model.FormSection{Title: "Extra"}, 1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sec.ID, "sec-"))
	assert.Equal(t, []string{"S0", sec.ID, "S1"}, e.SectionIDs())

	title := "Renamed"
	hide := true
	updated, err := e.UpdateSection(sec.ID, SectionPatch{Title: &title, HideByDefault: &hide})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.True(t, updated.HideByDefault)

	none := ""
	updated, err = e.UpdateSection("S1", SectionPatch{ShowIfFieldID: &none})
	require.NoError(t, err)
	assert.Empty(t, updated.ShowIfValue)
	assert.True(t, updated.Unconditional())

	ghost := "ghost"
	_, err = e.UpdateSection("S1", SectionPatch{ShowIfFieldID: &ghost})
	assert.ErrorIs(t, err, ErrFieldNotFound)
	_, err = e.UpdateSection("nope", SectionPatch{Title: &title})
	assert.ErrorIs(t, err, ErrSectionNotFound)
	_, err = e.AddSection(model.FormSection{ID: "S0", Title: "dup"}, -1)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestEditor_RemoveSectionCascades(t *testing.T) {
	f := bugForm()
	f.Sections = append(f.Sections, model.FormSection{ID: "S2", Title: "More", Order: 2})
	f.Fields = append(f.Fields,
		model.FormField{ID: "more0", Type: model.FieldText, Label: "m0", SectionID: "S2", Order: 0},
		model.FormField{ID: "more1", Type: model.FieldText, Label: "m1", SectionID: "S2", Order: 1},
		model.FormField{ID: "extra", Type: model.FieldText, Label: "x", SectionID: "S1", Order: 1},
	)
	f.Fields[0].OptionSectionMapping = map[string]string{"bug": "S1", "feature": "S2"}
	f.Fields[0].GoToSection = "S1"
	require.NoError(t, model.ValidateForm(f))
	e := NewEditor(f)

	removed, err := e.RemoveSection("S1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"steps", "extra"}, removed)
	assert.Nil(t, e.Form().Section("S1"))
	assert.Nil(t, e.Form().Field("steps"))
	assert.Nil(t, e.Form().Field("extra"))

	assert.Equal(t, []string{"S0", "S2"}, e.SectionIDs())
	assert.Equal(t, 1, e.Form().Section("S2").Order)
	assert.Equal(t, []string{"more0", "more1"}, e.FieldIDs("S2"))
	assert.Equal(t, map[string]string{"feature": "S2"}, e.Form().Field("type").OptionSectionMapping)
	assert.Empty(t, e.Form().Field("type").GoToSection)
	assert.True(t, IsDense(e.Form().Fields))
	assert.NoError(t, model.ValidateForm(e.Form()))

	_, err = e.RemoveSection("S1")
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestEditor_MoveFieldWithinSection(t *testing.T) {
	e := NewEditor(bugForm())
	for _, id := range []string{"a", "b"} {
		_, err := e.AddField(model.FormField{ID: id, Type: model.FieldText, Label: id, SectionID: "S0"}, -1)
		require.NoError(t, err)
	}
	require.Equal(t, []string{"summary", "a", "b"}, e.FieldIDs("S0"))

	require.NoError(t, e.MoveFieldWithinSection(2, 0, "S0"))
	assert.Equal(t, []string{"b", "summary", "a"}, e.FieldIDs("S0"))

	assert.ErrorIs(t, e.MoveFieldWithinSection(0, 3, "S0"), ErrIndexOutOfRange)
	assert.ErrorIs(t, e.MoveFieldWithinSection(0, 0, "nope"), ErrSectionNotFound)
}

func TestEditor_MoveFieldBetweenSections(t *testing.T) {
	e := NewEditor(bugForm())

	zero := 0
	require.NoError(t, e.MoveFieldBetweenSections("summary", "S0", "S1", &zero))
	assert.Equal(t, []string{"summary", "steps"}, e.FieldIDs("S1"))
	assert.Empty(t, e.FieldIDs("S0"))

	require.NoError(t, e.MoveFieldBetweenSections("summary", "S1", "S0", nil))
	assert.Equal(t, "S0", e.Form().Field("summary").SectionID)
	assert.Equal(t, []string{"steps"}, e.FieldIDs("S1"))
	assert.True(t, IsDense(e.Form().Fields))

	assert.ErrorIs(t, e.MoveFieldBetweenSections("summary", "S1", "S0", nil), ErrStaleMove)
	assert.ErrorIs(t, e.MoveFieldBetweenSections("ghost", "S0", "S1", nil), ErrFieldNotFound)
	assert.ErrorIs(t, e.MoveFieldBetweenSections("summary", "S0", "nope", nil), ErrSectionNotFound)
}

func TestEditor_MoveSection(t *testing.T) {
	e := NewEditor(bugForm())
	require.NoError(t, e.MoveSection(1, 0))
	assert.Equal(t, []string{"S1", "S0"}, e.SectionIDs())
	assert.ErrorIs(t, e.MoveSection(0, 2), ErrIndexOutOfRange)
}

func TestEditor_Gestures(t *testing.T) {
	e := NewEditor(bugForm())
	rect := &Rect{Top: 0, Bottom: 40}

	// Pointer has not crossed the midpoint of S1 yet.
	moved, err := e.ApplySectionGesture(Gesture{DragIndex: 0, Ticks: []HoverTick{{HoverIndex: 1, HoverRect: rect, PointerY: 10}}})
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, []string{"S0", "S1"}, e.SectionIDs())

	moved, err = e.ApplySectionGesture(Gesture{DragIndex: 0, Ticks: []HoverTick{{HoverIndex: 1, HoverRect: rect, PointerY: 30}}})
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, []string{"S1", "S0"}, e.SectionIDs())

	for _, id := range []string{"a", "b"} {
		_, err := e.AddField(model.FormField{ID: id, Type: model.FieldText, Label: id}, -1)
		require.NoError(t, err)
	}
	moved, err = e.ApplyFieldGesture("", Gesture{DragIndex: 2, Ticks: []HoverTick{{HoverIndex: 0}}, Cancelled: true})
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, []string{"type", "a", "b"}, e.FieldIDs(""))

	moved, err = e.ApplyFieldGesture("", Gesture{DragIndex: 2, Ticks: []HoverTick{{HoverIndex: 0}}})
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, []string{"b", "type", "a"}, e.FieldIDs(""))

	_, err = e.ApplyFieldGesture("", Gesture{DragIndex: 7})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}
