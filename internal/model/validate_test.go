package model

import (
	"strings"
	"testing"
)

// validForm returns a Form that passes all validation rules.
func validForm() Form {
	return Form{
		TicketType: TicketBug,
		Title:      "Bug report",
		Sections: []FormSection{
			{ID: "S0", Title: "General", Order: 0},
			{ID: "S1", Title: "Bug details", Order: 1, ShowIfFieldID: "type", ShowIfValue: "bug"},
		},
		Fields: []FormField{
			{ID: "type", Type: FieldDropdown, Label: "Type", Options: []string{"bug", "feature"}, Order: 0},
			{ID: "summary", Type: FieldText, Label: "Summary", Required: true, Order: 0, SectionID: "S0"},
			{ID: "steps", Type: FieldTextarea, Label: "Steps", Order: 0, SectionID: "S1"},
			{ID: "intro", Type: FieldDescription, Description: "Tell us what happened.", Order: 1},
		},
	}
}

// fieldErrors extracts a *ValidationError from err or fails the test.
func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	return ve.Errors
}

// hasFieldError reports whether the error list contains an error for the given field.
func hasFieldError(errs []FieldError, field string) bool {
	for _, fe := range errs {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func TestValidateForm_Valid(t *testing.T) {
	f := validForm()
	if err := ValidateForm(&f); err != nil {
		t.Fatalf("expected valid form, got %v", err)
	}
}

func TestValidateForm_TicketTypeRequired(t *testing.T) {
	f := validForm()
	f.TicketType = ""
	errs := fieldErrors(t, ValidateForm(&f))
	if !hasFieldError(errs, "ticket_type") {
		t.Error("expected error on 'ticket_type'")
	}
}

func TestValidateForm_LabelRequired(t *testing.T) {
	f := validForm()
	f.Fields[1].Label = "  \t "
	errs := fieldErrors(t, ValidateForm(&f))
	if !hasFieldError(errs, "fields[summary].label") {
		t.Errorf("expected label error, got %v", errs)
	}
}

func TestValidateForm_DescriptionNeedsNoLabel(t *testing.T) {
	f := validForm()
	if f.Fields[3].Label != "" {
		t.Fatal("fixture description field should have no label")
	}
	if err := ValidateForm(&f); err != nil {
		t.Fatalf("description field without label should pass, got %v", err)
	}
}

func TestValidateForm_SectionTitleRequired(t *testing.T) {
	f := validForm()
	f.Sections[0].Title = ""
	errs := fieldErrors(t, ValidateForm(&f))
	if !hasFieldError(errs, "sections[S0].title") {
		t.Errorf("expected title error, got %v", errs)
	}
}

func TestValidateForm_InvalidType(t *testing.T) {
	f := validForm()
	f.Fields[1].Type = "slider"
	errs := fieldErrors(t, ValidateForm(&f))
	if !hasFieldError(errs, "fields[summary].type") {
		t.Errorf("expected type error, got %v", errs)
	}
}

func TestValidateForm_Options(t *testing.T) {
	tests := []struct {
		name    string
		typ     FieldType
		options []string
		wantErr bool
	}{
		{"dropdown with options", FieldDropdown, []string{"a", "b"}, false},
		{"dropdown without options", FieldDropdown, nil, true},
		{"checkboxes duplicate", FieldCheckboxes, []string{"a", "a"}, true},
		{"checkboxes comma", FieldCheckboxes, []string{"a,b"}, true},
		{"multiple choice blank", FieldMultipleChoice, []string{"a", " "}, true},
		{"text with options", FieldText, []string{"a"}, true},
		{"text without options", FieldText, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			f.Fields = append(f.Fields, FormField{ID: "x", Type: tt.typ, Label: "X", Options: tt.options, Order: 2})
			err := ValidateForm(&f)
			if tt.wantErr {
				if !hasFieldError(fieldErrors(t, err), "fields[x].options") {
					t.Errorf("expected options error, got %v", err)
				}
			} else if err != nil {
				t.Errorf("expected valid, got %v", err)
			}
		})
	}
}

func TestValidateForm_DuplicateIDs(t *testing.T) {
	f := validForm()
	f.Fields = append(f.Fields, FormField{ID: "summary", Type: FieldText, Label: "Again", Order: 2})
	f.Sections = append(f.Sections, FormSection{ID: "S0", Title: "Again", Order: 2})
	errs := fieldErrors(t, ValidateForm(&f))
	if !hasFieldError(errs, "fields[summary].id") {
		t.Error("expected duplicate field id error")
	}
	if !hasFieldError(errs, "sections[S0].id") {
		t.Error("expected duplicate section id error")
	}
}

func TestValidateForm_UnknownSectionRef(t *testing.T) {
	f := validForm()
	f.Fields[2].SectionID = "nope"
	errs := fieldErrors(t, ValidateForm(&f))
	if !hasFieldError(errs, "fields[steps].section_id") {
		t.Errorf("expected section_id error, got %v", errs)
	}
}

func TestValidateForm_NotDense(t *testing.T) {
	f := validForm()
	f.Fields[3].Order = 5
	errs := fieldErrors(t, ValidateForm(&f))
	if !hasFieldError(errs, "fields") {
		t.Errorf("expected density error on unsectioned fields, got %v", errs)
	}

	f = validForm()
	f.Sections[1].Order = 0
	errs = fieldErrors(t, ValidateForm(&f))
	if !hasFieldError(errs, "sections") {
		t.Errorf("expected density error on sections, got %v", errs)
	}
}

func TestValidateForm_ShowIfRules(t *testing.T) {
	f := validForm()
	f.Sections[1].ShowIfFieldID = "ghost"
	errs := fieldErrors(t, ValidateForm(&f))
	if !hasFieldError(errs, "sections[S1].show_if_field_id") {
		t.Errorf("expected unknown trigger error, got %v", errs)
	}

	f = validForm()
	f.Sections[1].ShowIfValue = ""
	errs = fieldErrors(t, ValidateForm(&f))
	if !hasFieldError(errs, "sections[S1].show_if_value") {
		t.Errorf("expected missing value error, got %v", errs)
	}

	f = validForm()
	f.Sections[0].ShowIfValues = []string{"bug"}
	errs = fieldErrors(t, ValidateForm(&f))
	if !hasFieldError(errs, "sections[S0].show_if_field_id") {
		t.Errorf("expected orphan value error, got %v", errs)
	}
}

func TestValidateForm_SelfTrigger(t *testing.T) {
	f := validForm()
	f.Sections[1].ShowIfFieldID = "steps"
	errs := fieldErrors(t, ValidateForm(&f))
	for _, fe := range errs {
		if fe.Field == "sections[S1].show_if_field_id" && fe.Code == CodeCycle {
			return
		}
	}
	t.Errorf("expected cycle error, got %v", errs)
}

func TestValidateForm_RuleCycle(t *testing.T) {
	f := validForm()
	// S0 is shown by a field in S1, and S1 by a field in S0.
	f.Sections[0].ShowIfFieldID = "steps"
	f.Sections[0].ShowIfValue = "x"
	f.Sections[1].ShowIfFieldID = "summary"
	f.Sections[1].ShowIfValue = "y"
	errs := fieldErrors(t, ValidateForm(&f))
	if !hasFieldError(errs, "sections[S0].show_if_field_id") || !hasFieldError(errs, "sections[S1].show_if_field_id") {
		t.Errorf("expected cycle errors on both sections, got %v", errs)
	}
}

func TestValidateForm_OptionSectionMapping(t *testing.T) {
	f := validForm()
	f.Fields[0].OptionSectionMapping = map[string]string{"bug": "S1"}
	if err := ValidateForm(&f); err != nil {
		t.Fatalf("expected valid mapping, got %v", err)
	}

	f.Fields[0].OptionSectionMapping = map[string]string{"other": "S1", "bug": "S9"}
	errs := fieldErrors(t, ValidateForm(&f))
	var codes []string
	for _, fe := range errs {
		if fe.Field == "fields[type].option_section_mapping" {
			codes = append(codes, fe.Code)
		}
	}
	if got := strings.Join(codes, ","); got != "not_found,invalid_option" {
		t.Errorf("mapping error codes = %q, want %q", got, "not_found,invalid_option")
	}

	f = validForm()
	f.Fields[1].OptionSectionMapping = map[string]string{"a": "S1"}
	errs = fieldErrors(t, ValidateForm(&f))
	if !hasFieldError(errs, "fields[summary].option_section_mapping") {
		t.Errorf("expected mapping on text field to fail, got %v", errs)
	}
}

func TestValidationError_Message(t *testing.T) {
	ve := &ValidationError{Errors: []FieldError{
		{Field: "a", Message: "is required"},
		{Field: "b", Message: "is bad"},
	}}
	want := "validation failed: a: is required; b: is bad"
	if ve.Error() != want {
		t.Errorf("Error() = %q, want %q", ve.Error(), want)
	}
}

func TestFormClone_Independent(t *testing.T) {
	f := validForm()
	f.Fields[0].OptionSectionMapping = map[string]string{"bug": "S1"}
	c := f.Clone()
	c.Fields[0].Options[0] = "changed"
	c.Fields[0].OptionSectionMapping["bug"] = "S0"
	c.Sections[0].Title = "changed"
	if f.Fields[0].Options[0] != "bug" || f.Fields[0].OptionSectionMapping["bug"] != "S1" || f.Sections[0].Title != "General" {
		t.Error("Clone shares state with the original")
	}
}
