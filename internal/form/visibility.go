package form

import (
	"slices"
	"sort"

	"github.com/alfredjeanlab/formdesk/internal/model"
)

// VisibleSet is the set of section ids that are currently shown.
type VisibleSet map[string]struct{}

// Has reports whether the section is visible.
func (v VisibleSet) Has(id string) bool {
	_, ok := v[id]
	return ok
}

// IDs returns the visible section ids in sorted order.
func (v VisibleSet) IDs() []string {
	ids := make([]string, 0, len(v))
	for id := range v {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResolveVisibleSections computes which sections are shown for the given
// answers. It is the union of three independent passes: unconditional
// sections, sections whose show-if rule is satisfied, and sections named by
// the option mapping of a selected option. The passes are not iterated to a
// fixpoint. A missing or empty answer never satisfies a rule.
func ResolveVisibleSections(sections []model.FormSection, fields []model.FormField, values map[string]string) VisibleSet {
	visible := make(VisibleSet, len(sections))
	known := make(map[string]bool, len(sections))

	for i := range sections {
		s := &sections[i]
		known[s.ID] = true
		if s.Unconditional() {
			visible[s.ID] = struct{}{}
		}
	}

	for i := range sections {
		s := &sections[i]
		if !s.Conditional() {
			continue
		}
		v, ok := values[s.ShowIfFieldID]
		if !ok || v == "" {
			continue
		}
		if (s.ShowIfValue != "" && v == s.ShowIfValue) || slices.Contains(s.ShowIfValues, v) {
			visible[s.ID] = struct{}{}
		}
	}

	for i := range fields {
		f := &fields[i]
		if len(f.OptionSectionMapping) == 0 {
			continue
		}
		for _, opt := range SelectedOptions(f, values[f.ID]) {
			if target, ok := f.OptionSectionMapping[opt]; ok && known[target] {
				visible[target] = struct{}{}
			}
		}
	}

	return visible
}

// SelectedOptions returns the options an answer selects. Dropdown and
// multiple-choice answers are a single option; checkboxes answers are
// comma-joined. Other field types select nothing.
func SelectedOptions(f *model.FormField, value string) []string {
	if value == "" {
		return nil
	}
	switch f.Type {
	case model.FieldDropdown, model.FieldMultipleChoice:
		return []string{value}
	case model.FieldCheckboxes:
		return model.SplitChoices(value)
	}
	return nil
}
