package model

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
// Code is a stable identifier used to localize Message.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes carried by FieldError.
const (
	CodeRequired      = "required"
	CodeInvalid       = "invalid"
	CodeDuplicate     = "duplicate"
	CodeNotFound      = "not_found"
	CodeNotDense      = "not_dense"
	CodeCycle         = "cycle"
	CodeUnknownField  = "unknown_field"
	CodeInvalidOption = "invalid_option"
	CodeNotAnswerable = "not_answerable"
)

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) add(field, code, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

// ValidateForm checks a Form for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the form is valid.
func ValidateForm(f *Form) error {
	var ve ValidationError

	if !f.TicketType.IsValid() {
		ve.add("ticket_type", CodeRequired, "is required")
	}

	sections := make(map[string]*FormSection, len(f.Sections))
	for i := range f.Sections {
		s := &f.Sections[i]
		name := "sections[" + s.ID + "]"
		if strings.TrimSpace(s.ID) == "" {
			ve.add(fmt.Sprintf("sections[%d].id", i), CodeRequired, "is required")
			continue
		}
		if _, dup := sections[s.ID]; dup {
			ve.add(name+".id", CodeDuplicate, "duplicate section id %q", s.ID)
			continue
		}
		sections[s.ID] = s
		if strings.TrimSpace(s.Title) == "" {
			ve.add(name+".title", CodeRequired, "is required")
		}
	}

	fields := make(map[string]*FormField, len(f.Fields))
	for i := range f.Fields {
		fld := &f.Fields[i]
		if strings.TrimSpace(fld.ID) == "" {
			ve.add(fmt.Sprintf("fields[%d].id", i), CodeRequired, "is required")
			continue
		}
		if _, dup := fields[fld.ID]; dup {
			ve.add("fields["+fld.ID+"].id", CodeDuplicate, "duplicate field id %q", fld.ID)
			continue
		}
		fields[fld.ID] = fld
	}

	for i := range f.Fields {
		fld := &f.Fields[i]
		if fields[fld.ID] != fld {
			continue
		}
		validateField(&ve, fld, sections)
	}

	for _, id := range sortedKeys(sections) {
		validateSectionRule(&ve, sections[id], fields)
	}

	checkDense(&ve, f)
	checkRuleCycles(&ve, sections, fields)

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

func validateField(ve *ValidationError, fld *FormField, sections map[string]*FormSection) {
	name := "fields[" + fld.ID + "]"

	if !fld.Type.IsValid() {
		ve.add(name+".type", CodeInvalid, "invalid value %q", fld.Type)
	}

	// Description fields carry their content in Description.
	if fld.Type != FieldDescription && strings.TrimSpace(fld.Label) == "" {
		ve.add(name+".label", CodeRequired, "is required")
	}

	if fld.Type.HasOptions() {
		if len(fld.Options) == 0 {
			ve.add(name+".options", CodeRequired, "is required for %s fields", fld.Type)
		}
		seen := make(map[string]bool, len(fld.Options))
		for _, o := range fld.Options {
			if strings.TrimSpace(o) == "" {
				ve.add(name+".options", CodeInvalid, "must not contain empty options")
				continue
			}
			if fld.Type == FieldCheckboxes && strings.Contains(o, ",") {
				ve.add(name+".options", CodeInvalid, "option %q must not contain a comma", o)
			}
			if seen[o] {
				ve.add(name+".options", CodeDuplicate, "duplicate option %q", o)
			}
			seen[o] = true
		}
	} else if len(fld.Options) > 0 {
		ve.add(name+".options", CodeInvalid, "not allowed for %s fields", fld.Type)
	}

	if fld.SectionID != "" {
		if _, ok := sections[fld.SectionID]; !ok {
			ve.add(name+".section_id", CodeNotFound, "unknown section %q", fld.SectionID)
		}
	}
	if fld.GoToSection != "" {
		if _, ok := sections[fld.GoToSection]; !ok {
			ve.add(name+".go_to_section", CodeNotFound, "unknown section %q", fld.GoToSection)
		}
	}

	if len(fld.OptionSectionMapping) > 0 && !fld.Type.HasOptions() {
		ve.add(name+".option_section_mapping", CodeInvalid, "not allowed for %s fields", fld.Type)
		return
	}
	for _, opt := range sortedKeys(fld.OptionSectionMapping) {
		target := fld.OptionSectionMapping[opt]
		if !fld.HasOption(opt) {
			ve.add(name+".option_section_mapping", CodeInvalidOption, "%q is not an option", opt)
		}
		if _, ok := sections[target]; !ok {
			ve.add(name+".option_section_mapping", CodeNotFound, "option %q targets unknown section %q", opt, target)
		}
	}
}

func validateSectionRule(ve *ValidationError, s *FormSection, fields map[string]*FormField) {
	name := "sections[" + s.ID + "]"
	if !s.Conditional() {
		if s.ShowIfValue != "" || len(s.ShowIfValues) > 0 {
			ve.add(name+".show_if_field_id", CodeRequired, "is required when a show-if value is set")
		}
		return
	}
	trigger, ok := fields[s.ShowIfFieldID]
	if !ok {
		ve.add(name+".show_if_field_id", CodeNotFound, "unknown field %q", s.ShowIfFieldID)
		return
	}
	if s.ShowIfValue == "" && len(s.ShowIfValues) == 0 {
		ve.add(name+".show_if_value", CodeRequired, "is required when show_if_field_id is set")
	}
	if trigger.SectionID == s.ID {
		ve.add(name+".show_if_field_id", CodeCycle, "field %q is inside the section it controls", trigger.ID)
	}
}

// checkDense verifies that every field partition and the section list are
// numbered exactly 0..n-1.
func checkDense(ve *ValidationError, f *Form) {
	byPartition := make(map[string][]int)
	for _, fld := range f.Fields {
		byPartition[fld.SectionID] = append(byPartition[fld.SectionID], fld.Order)
	}
	for _, key := range sortedKeys(byPartition) {
		if !dense(byPartition[key]) {
			label := "fields"
			if key != "" {
				label = "sections[" + key + "].fields"
			}
			ve.add(label, CodeNotDense, "order must be 0..%d without gaps or duplicates", len(byPartition[key])-1)
		}
	}
	orders := make([]int, len(f.Sections))
	for i, s := range f.Sections {
		orders[i] = s.Order
	}
	if !dense(orders) {
		ve.add("sections", CodeNotDense, "order must be 0..%d without gaps or duplicates", len(orders)-1)
	}
}

func dense(orders []int) bool {
	seen := make([]bool, len(orders))
	for _, o := range orders {
		if o < 0 || o >= len(orders) || seen[o] {
			return false
		}
		seen[o] = true
	}
	return true
}

// checkRuleCycles rejects show-if chains that loop back on themselves.
// Section A depends on section B when A's trigger field lives in B.
func checkRuleCycles(ve *ValidationError, sections map[string]*FormSection, fields map[string]*FormField) {
	dependsOn := make(map[string]string)
	for id, s := range sections {
		if trigger, ok := fields[s.ShowIfFieldID]; ok && trigger.SectionID != "" && trigger.SectionID != id {
			dependsOn[id] = trigger.SectionID
		}
	}
	reported := make(map[string]bool)
	for _, start := range sortedKeys(dependsOn) {
		seen := map[string]bool{start: true}
		for cur, ok := dependsOn[start]; ok; cur, ok = dependsOn[cur] {
			if cur == start {
				if !reported[start] {
					ve.add("sections["+start+"].show_if_field_id", CodeCycle, "show-if rules form a cycle")
					reported[start] = true
				}
				break
			}
			if seen[cur] {
				break
			}
			seen[cur] = true
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
