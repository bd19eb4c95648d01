package form

import (
	"github.com/alfredjeanlab/formdesk/internal/model"
)

// Layout is the resolved, ordered structure a ticket page renders: fields
// without a section first, then each visible section with its fields.
type Layout struct {
	TicketType      model.TicketType  `json:"ticket_type"`
	Title           string            `json:"title,omitempty"`
	Version         int               `json:"version"`
	Fields          []model.FormField `json:"fields"`
	Sections        []SectionLayout   `json:"sections"`
	VisibleSections []string          `json:"visible_sections"`
}

// SectionLayout is one visible section and its fields sorted by order.
type SectionLayout struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Fields      []model.FormField `json:"fields"`
}

// BuildLayout resolves visibility for values and returns the render order.
func BuildLayout(f *model.Form, values map[string]string) Layout {
	visible := ResolveVisibleSections(f.Sections, f.Fields, values)
	l := Layout{
		TicketType:      f.TicketType,
		Title:           f.Title,
		Version:         f.Version,
		Fields:          nonNil(f.FieldsIn("")),
		Sections:        []SectionLayout{},
		VisibleSections: visible.IDs(),
	}
	for _, s := range f.SortedSections() {
		if !visible.Has(s.ID) {
			continue
		}
		l.Sections = append(l.Sections, SectionLayout{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			Fields:      nonNil(f.FieldsIn(s.ID)),
		})
	}
	return l
}

// RenderedFields returns every field the layout renders, in render order.
func (l Layout) RenderedFields() []model.FormField {
	out := append([]model.FormField(nil), l.Fields...)
	for _, s := range l.Sections {
		out = append(out, s.Fields...)
	}
	return out
}

func nonNil(fields []model.FormField) []model.FormField {
	if fields == nil {
		return []model.FormField{}
	}
	return fields
}
