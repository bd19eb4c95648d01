package model

import (
	"sort"
	"time"
)

// TicketType names the kind of ticket a form collects (e.g. "bug", "support").
// Ticket types are extensible; any non-empty value is accepted.
type TicketType string

// Well-known ticket types.
const (
	TicketBug         TicketType = "bug"
	TicketSupport     TicketType = "support"
	TicketApplication TicketType = "application"
	TicketAppeal      TicketType = "appeal"
)

// String returns the string representation of the ticket type.
func (t TicketType) String() string {
	return string(t)
}

// IsValid reports whether the ticket type is a non-empty string.
func (t TicketType) IsValid() bool {
	return t != ""
}

// FieldType identifies the input widget a form field renders as.
type FieldType string

const (
	FieldText           FieldType = "text"
	FieldTextarea       FieldType = "textarea"
	FieldDropdown       FieldType = "dropdown"
	FieldMultipleChoice FieldType = "multiple_choice"
	FieldCheckbox       FieldType = "checkbox"
	FieldCheckboxes     FieldType = "checkboxes"
	FieldFileUpload     FieldType = "file_upload"
	FieldDescription    FieldType = "description"
)

// String returns the string representation of the field type.
func (t FieldType) String() string {
	return string(t)
}

// IsValid checks whether the field type is a known value.
func (t FieldType) IsValid() bool {
	switch t {
	case FieldText, FieldTextarea, FieldDropdown, FieldMultipleChoice,
		FieldCheckbox, FieldCheckboxes, FieldFileUpload, FieldDescription:
		return true
	}
	return false
}

// HasOptions reports whether fields of this type carry an option list.
func (t FieldType) HasOptions() bool {
	switch t {
	case FieldDropdown, FieldMultipleChoice, FieldCheckboxes:
		return true
	}
	return false
}

// AcceptsInput reports whether the field collects an answer.
// Description fields are display-only.
func (t FieldType) AcceptsInput() bool {
	return t.IsValid() && t != FieldDescription
}

// FormField is a single input definition.
type FormField struct {
	ID          string    `json:"id" yaml:"id"`
	Type        FieldType `json:"type" yaml:"type"`
	Label       string    `json:"label" yaml:"label"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Options     []string  `json:"options,omitempty" yaml:"options,omitempty"`
	Order       int       `json:"order" yaml:"order"`
	// SectionID is empty for fields rendered outside any section.
	SectionID            string            `json:"section_id,omitempty" yaml:"section_id,omitempty"`
	GoToSection          string            `json:"go_to_section,omitempty" yaml:"go_to_section,omitempty"`
	OptionSectionMapping map[string]string `json:"option_section_mapping,omitempty" yaml:"option_section_mapping,omitempty"`
}

// ItemID, Partition, Rank and SetRank let the order maintainer manage fields.
func (f *FormField) ItemID() string { return f.ID }
func (f *FormField) Partition() string { return f.SectionID }
func (f *FormField) Rank() int { return f.Order }
func (f *FormField) SetRank(n int) { f.Order = n }
func (f *FormField) SetPartition(k string) { f.SectionID = k }

// HasOption reports whether opt is one of the field's options.
func (f *FormField) HasOption(opt string) bool {
	for _, o := range f.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the field.
func (f FormField) Clone() FormField {
	out := f
	if f.Options != nil {
		out.Options = append([]string(nil), f.Options...)
	}
	if f.OptionSectionMapping != nil {
		out.OptionSectionMapping = make(map[string]string, len(f.OptionSectionMapping))
		for k, v := range f.OptionSectionMapping {
			out.OptionSectionMapping[k] = v
		}
	}
	return out
}

// FormSection is a named, orderable group of fields with optional
// conditional visibility.
type FormSection struct {
	ID            string   `json:"id" yaml:"id"`
	Title         string   `json:"title" yaml:"title"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
	Order         int      `json:"order" yaml:"order"`
	ShowIfFieldID string   `json:"show_if_field_id,omitempty" yaml:"show_if_field_id,omitempty"`
	ShowIfValue   string   `json:"show_if_value,omitempty" yaml:"show_if_value,omitempty"`
	ShowIfValues  []string `json:"show_if_values,omitempty" yaml:"show_if_values,omitempty"`
	HideByDefault bool     `json:"hide_by_default,omitempty" yaml:"hide_by_default,omitempty"`
}

// All sections of a form share one partition.
func (s *FormSection) ItemID() string { return s.ID }
func (s *FormSection) Partition() string { return "" }
func (s *FormSection) Rank() int { return s.Order }
func (s *FormSection) SetRank(n int) { s.Order = n }
func (s *FormSection) SetPartition(string) {}

// Conditional reports whether the section declares a show-if rule.
func (s *FormSection) Conditional() bool {
	return s.ShowIfFieldID != ""
}

// Unconditional reports whether the section is always visible.
func (s *FormSection) Unconditional() bool {
	return !s.HideByDefault && !s.Conditional()
}

// Clone returns a deep copy of the section.
func (s FormSection) Clone() FormSection {
	out := s
	if s.ShowIfValues != nil {
		out.ShowIfValues = append([]string(nil), s.ShowIfValues...)
	}
	return out
}

// Form is the set of fields and sections defining one ticket type's
// submission page.
type Form struct {
	TicketType TicketType    `json:"ticket_type" yaml:"ticket_type"`
	Title      string        `json:"title,omitempty" yaml:"title,omitempty"`
	Fields     []FormField   `json:"fields" yaml:"fields"`
	Sections   []FormSection `json:"sections" yaml:"sections"`
	Version    int           `json:"version" yaml:"version,omitempty"`
	CreatedAt  time.Time     `json:"created_at" yaml:"-"`
	UpdatedAt  time.Time     `json:"updated_at" yaml:"-"`
	UpdatedBy  string        `json:"updated_by,omitempty" yaml:"-"`
}

// Clone returns a deep copy of the form.
func (f *Form) Clone() *Form {
	if f == nil {
		return nil
	}
	out := *f
	out.Fields = make([]FormField, len(f.Fields))
	for i := range f.Fields {
		out.Fields[i] = f.Fields[i].Clone()
	}
	out.Sections = make([]FormSection, len(f.Sections))
	for i := range f.Sections {
		out.Sections[i] = f.Sections[i].Clone()
	}
	return &out
}

// Field returns the field with the given id, or nil.
func (f *Form) Field(id string) *FormField {
	for i := range f.Fields {
		if f.Fields[i].ID == id {
			return &f.Fields[i]
		}
	}
	return nil
}

// Section returns the section with the given id, or nil.
func (f *Form) Section(id string) *FormSection {
	for i := range f.Sections {
		if f.Sections[i].ID == id {
			return &f.Sections[i]
		}
	}
	return nil
}

// FieldsIn returns copies of the fields in the given section sorted by
// order. An empty sectionID selects fields without a section.
func (f *Form) FieldsIn(sectionID string) []FormField {
	var out []FormField
	for _, fld := range f.Fields {
		if fld.SectionID == sectionID {
			out = append(out, fld)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// SortedSections returns copies of the form's sections sorted by order.
func (f *Form) SortedSections() []FormSection {
	out := append([]FormSection(nil), f.Sections...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// FormSummary is the listing view of a form.
type FormSummary struct {
	TicketType TicketType `json:"ticket_type"`
	Title      string     `json:"title,omitempty"`
	Fields     int        `json:"fields"`
	Sections   int        `json:"sections"`
	Version    int        `json:"version"`
	UpdatedAt  time.Time  `json:"updated_at"`
	UpdatedBy  string     `json:"updated_by,omitempty"`
}

// Summary returns the listing view of f.
func (f *Form) Summary() FormSummary {
	return FormSummary{
		TicketType: f.TicketType,
		Title:      f.Title,
		Fields:     len(f.Fields),
		Sections:   len(f.Sections),
		Version:    f.Version,
		UpdatedAt:  f.UpdatedAt,
		UpdatedBy:  f.UpdatedBy,
	}
}
