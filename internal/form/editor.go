package form

import (
	"errors"
	"fmt"

	"github.com/alfredjeanlab/formdesk/internal/idgen"
	"github.com/alfredjeanlab/formdesk/internal/model"
)

var (
	ErrFieldNotFound   = errors.New("field not found")
	ErrSectionNotFound = errors.New("section not found")
	ErrDuplicateID     = errors.New("duplicate id")
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrStaleMove is returned when a cross-section move names a source
	// section the field is no longer in.
	ErrStaleMove = errors.New("field is not in the source section")
)

// Editor applies structural edits to an in-memory form. It never persists;
// callers save the form explicitly. Editors are not safe for concurrent use.
type Editor struct {
	form *model.Form
}

// NewEditor returns an editor over f. Edits mutate f in place, so callers
// that need rollback should pass a clone.
func NewEditor(f *model.Form) *Editor {
	return &Editor{form: f}
}

// Form returns the form being edited.
func (e *Editor) Form() *model.Form {
	return e.form
}

// FieldPatch holds the field attributes to change. Nil members are left as is.
type FieldPatch struct {
	Type                 *model.FieldType   `json:"type,omitempty"`
	Label                *string            `json:"label,omitempty"`
	Description          *string            `json:"description,omitempty"`
	Required             *bool              `json:"required,omitempty"`
	Options              *[]string          `json:"options,omitempty"`
	SectionID            *string            `json:"section_id,omitempty"`
	Order                *int               `json:"order,omitempty"`
	GoToSection          *string            `json:"go_to_section,omitempty"`
	OptionSectionMapping *map[string]string `json:"option_section_mapping,omitempty"`
}

// SectionPatch holds the section attributes to change. Setting
// ShowIfFieldID to "" removes the section's show-if rule.
type SectionPatch struct {
	Title         *string   `json:"title,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Order         *int      `json:"order,omitempty"`
	ShowIfFieldID *string   `json:"show_if_field_id,omitempty"`
	ShowIfValue   *string   `json:"show_if_value,omitempty"`
	ShowIfValues  *[]string `json:"show_if_values,omitempty"`
	HideByDefault *bool     `json:"hide_by_default,omitempty"`
}

// AddField inserts fld into its section at position. A negative position
// appends. An empty ID is generated.
func (e *Editor) AddField(fld model.FormField, position int) (model.FormField, error) {
	if fld.ID == "" {
		id, err := idgen.Field()
		if err != nil {
			return model.FormField{}, err
		}
		fld.ID = id
	}
	if e.form.Field(fld.ID) != nil {
		return model.FormField{}, fmt.Errorf("%w: field %q", ErrDuplicateID, fld.ID)
	}
	if err := e.requireSection(fld.SectionID); err != nil {
		return model.FormField{}, err
	}
	if !fld.Type.HasOptions() {
		fld.Options = nil
		fld.OptionSectionMapping = nil
	}
	e.form.Fields = Insert(e.form.Fields, fld, position)
	return *e.form.Field(fld.ID), nil
}

// UpdateField applies p to the field. A section change moves the field to
// the end of the new section before any order change is applied.
func (e *Editor) UpdateField(id string, p FieldPatch) (model.FormField, error) {
	f := e.form.Field(id)
	if f == nil {
		return model.FormField{}, fmt.Errorf("%w: %q", ErrFieldNotFound, id)
	}
	if p.SectionID != nil && *p.SectionID != f.SectionID {
		if err := e.requireSection(*p.SectionID); err != nil {
			return model.FormField{}, err
		}
		MoveAcross(e.form.Fields, id, f.SectionID, *p.SectionID, nil)
	}
	if p.Order != nil {
		from := e.fieldIndex(f.SectionID, id)
		if err := e.checkIndex(*p.Order, len(e.FieldIDs(f.SectionID))); err != nil {
			return model.FormField{}, err
		}
		Reorder(e.form.Fields, f.SectionID, from, *p.Order)
	}
	if p.Type != nil {
		f.Type = *p.Type
	}
	if p.Label != nil {
		f.Label = *p.Label
	}
	if p.Description != nil {
		f.Description = *p.Description
	}
	if p.Required != nil {
		f.Required = *p.Required
	}
	if p.Options != nil {
		f.Options = append([]string(nil), (*p.Options)...)
	}
	if p.GoToSection != nil {
		f.GoToSection = *p.GoToSection
	}
	if p.OptionSectionMapping != nil {
		f.OptionSectionMapping = nil
		if len(*p.OptionSectionMapping) > 0 {
			f.OptionSectionMapping = make(map[string]string, len(*p.OptionSectionMapping))
			for k, v := range *p.OptionSectionMapping {
				f.OptionSectionMapping[k] = v
			}
		}
	}
	if !f.Type.HasOptions() {
		f.Options = nil
		f.OptionSectionMapping = nil
	}
	return *f, nil
}

// RemoveField deletes the field and closes the gap in its section.
// Sections whose show-if rule named the field lose the rule and become
// hidden by default.
func (e *Editor) RemoveField(id string) error {
	if e.form.Field(id) == nil {
		return fmt.Errorf("%w: %q", ErrFieldNotFound, id)
	}
	e.form.Fields = Remove(e.form.Fields, id)
	e.detachRules(map[string]bool{id: true})
	return nil
}

// AddSection inserts s at position among the form's sections. A negative
// position appends. An empty ID is generated.
func (e *Editor) AddSection(s model.FormSection, position int) (model.FormSection, error) {
	if s.ID == "" {
		id, err := idgen.Section()
		if err != nil {
			return model.FormSection{}, err
		}
		s.ID = id
	}
	if e.form.Section(s.ID) != nil {
		return model.FormSection{}, fmt.Errorf("%w: section %q", ErrDuplicateID, s.ID)
	}
	if s.ShowIfFieldID != "" && e.form.Field(s.ShowIfFieldID) == nil {
		return model.FormSection{}, fmt.Errorf("%w: %q", ErrFieldNotFound, s.ShowIfFieldID)
	}
	e.form.Sections = Insert(e.form.Sections, s, position)
	return *e.form.Section(s.ID), nil
}

// UpdateSection applies p to the section.
func (e *Editor) UpdateSection(id string, p SectionPatch) (model.FormSection, error) {
	s := e.form.Section(id)
	if s == nil {
		return model.FormSection{}, fmt.Errorf("%w: %q", ErrSectionNotFound, id)
	}
	if p.ShowIfFieldID != nil && *p.ShowIfFieldID != "" && e.form.Field(*p.ShowIfFieldID) == nil {
		return model.FormSection{}, fmt.Errorf("%w: %q", ErrFieldNotFound, *p.ShowIfFieldID)
	}
	if p.Order != nil {
		if err := e.checkIndex(*p.Order, len(e.form.Sections)); err != nil {
			return model.FormSection{}, err
		}
		Reorder(e.form.Sections, "", e.sectionIndex(id), *p.Order)
	}
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.ShowIfFieldID != nil {
		s.ShowIfFieldID = *p.ShowIfFieldID
		if s.ShowIfFieldID == "" {
			s.ShowIfValue = ""
			s.ShowIfValues = nil
		}
	}
	if p.ShowIfValue != nil {
		s.ShowIfValue = *p.ShowIfValue
	}
	if p.ShowIfValues != nil {
		s.ShowIfValues = append([]string(nil), (*p.ShowIfValues)...)
	}
	if p.HideByDefault != nil {
		s.HideByDefault = *p.HideByDefault
	}
	return *s, nil
}

// RemoveSection deletes the section together with every field inside it,
// and drops option mappings and navigation hints that targeted it. It
// returns the ids of the removed fields.
func (e *Editor) RemoveSection(id string) ([]string, error) {
	if e.form.Section(id) == nil {
		return nil, fmt.Errorf("%w: %q", ErrSectionNotFound, id)
	}
	removed := e.FieldIDs(id)
	gone := make(map[string]bool, len(removed))
	for _, fid := range removed {
		e.form.Fields = Remove(e.form.Fields, fid)
		gone[fid] = true
	}
	e.form.Sections = Remove(e.form.Sections, id)

	for i := range e.form.Fields {
		f := &e.form.Fields[i]
		if f.GoToSection == id {
			f.GoToSection = ""
		}
		for opt, target := range f.OptionSectionMapping {
			if target == id {
				delete(f.OptionSectionMapping, opt)
			}
		}
		if len(f.OptionSectionMapping) == 0 {
			f.OptionSectionMapping = nil
		}
	}
	e.detachRules(gone)
	return removed, nil
}

// MoveFieldWithinSection moves the field at dragIndex to hoverIndex within
// a section. An empty sectionID addresses fields without a section.
func (e *Editor) MoveFieldWithinSection(dragIndex, hoverIndex int, sectionID string) error {
	if err := e.requireSection(sectionID); err != nil {
		return err
	}
	n := len(e.FieldIDs(sectionID))
	if err := e.checkIndex(dragIndex, n); err != nil {
		return err
	}
	if err := e.checkIndex(hoverIndex, n); err != nil {
		return err
	}
	Reorder(e.form.Fields, sectionID, dragIndex, hoverIndex)
	return nil
}

// MoveFieldBetweenSections moves a field from one section to another at
// target, or to the end when target is nil.
func (e *Editor) MoveFieldBetweenSections(fieldID, fromSectionID, toSectionID string, target *int) error {
	f := e.form.Field(fieldID)
	if f == nil {
		return fmt.Errorf("%w: %q", ErrFieldNotFound, fieldID)
	}
	if err := e.requireSection(fromSectionID); err != nil {
		return err
	}
	if err := e.requireSection(toSectionID); err != nil {
		return err
	}
	if f.SectionID != fromSectionID {
		return fmt.Errorf("%w: %q is in %q", ErrStaleMove, fieldID, f.SectionID)
	}
	MoveAcross(e.form.Fields, fieldID, fromSectionID, toSectionID, target)
	return nil
}

// MoveSection moves the section at dragIndex to hoverIndex.
func (e *Editor) MoveSection(dragIndex, hoverIndex int) error {
	n := len(e.form.Sections)
	if err := e.checkIndex(dragIndex, n); err != nil {
		return err
	}
	if err := e.checkIndex(hoverIndex, n); err != nil {
		return err
	}
	Reorder(e.form.Sections, "", dragIndex, hoverIndex)
	return nil
}

// ApplyFieldGesture replays a drag gesture over a section's fields and
// commits the net move. It reports whether the order changed.
func (e *Editor) ApplyFieldGesture(sectionID string, g Gesture) (bool, error) {
	if err := e.requireSection(sectionID); err != nil {
		return false, err
	}
	ids := e.FieldIDs(sectionID)
	if err := e.checkIndex(g.DragIndex, len(ids)); err != nil {
		return false, err
	}
	from, to := g.Preview(ids).Move()
	if from == to {
		return false, nil
	}
	return true, e.MoveFieldWithinSection(from, to, sectionID)
}

// ApplySectionGesture replays a drag gesture over the section list.
func (e *Editor) ApplySectionGesture(g Gesture) (bool, error) {
	ids := e.SectionIDs()
	if err := e.checkIndex(g.DragIndex, len(ids)); err != nil {
		return false, err
	}
	from, to := g.Preview(ids).Move()
	if from == to {
		return false, nil
	}
	return true, e.MoveSection(from, to)
}

// Normalize renumbers fields and sections densely, keeping their relative
// order. Used on imported definitions.
func (e *Editor) Normalize() {
	Normalize(e.form.Fields)
	Normalize(e.form.Sections)
}

// FieldIDs returns the ids of a section's fields in order.
func (e *Editor) FieldIDs(sectionID string) []string {
	var ids []string
	for _, f := range Partition(e.form.Fields, sectionID) {
		ids = append(ids, f.ID)
	}
	return ids
}

// SectionIDs returns the form's section ids in order.
func (e *Editor) SectionIDs() []string {
	var ids []string
	for _, s := range Partition(e.form.Sections, "") {
		ids = append(ids, s.ID)
	}
	return ids
}

func (e *Editor) requireSection(id string) error {
	if id != "" && e.form.Section(id) == nil {
		return fmt.Errorf("%w: %q", ErrSectionNotFound, id)
	}
	return nil
}

func (e *Editor) checkIndex(i, n int) error {
	if i < 0 || i >= n {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, n)
	}
	return nil
}

func (e *Editor) fieldIndex(sectionID, id string) int {
	for i, fid := range e.FieldIDs(sectionID) {
		if fid == id {
			return i
		}
	}
	return -1
}

func (e *Editor) sectionIndex(id string) int {
	for i, sid := range e.SectionIDs() {
		if sid == id {
			return i
		}
	}
	return -1
}

// detachRules clears show-if rules that name any of the given fields.
func (e *Editor) detachRules(fields map[string]bool) {
	for i := range e.form.Sections {
		s := &e.form.Sections[i]
		if fields[s.ShowIfFieldID] {
			s.ShowIfFieldID = ""
			s.ShowIfValue = ""
			s.ShowIfValues = nil
			s.HideByDefault = true
		}
	}
}
