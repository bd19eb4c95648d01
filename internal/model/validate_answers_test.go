package model

import (
	"reflect"
	"testing"
)

func TestSplitChoices(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"A, B", []string{"A", "B"}},
		{" A ,, B ,", []string{"A", "B"}},
		{"", nil},
		{" , ", nil},
		{"single", []string{"single"}},
	}
	for _, tt := range tests {
		if got := SplitChoices(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitChoices(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func answersForm() Form {
	return Form{
		TicketType: TicketSupport,
		Fields: []FormField{
			{ID: "topic", Type: FieldDropdown, Label: "Topic", Required: true, Options: []string{"billing", "account"}},
			{ID: "areas", Type: FieldCheckboxes, Label: "Areas", Options: []string{"A", "B"}},
			{ID: "agree", Type: FieldCheckbox, Label: "I agree", Required: true},
			{ID: "notes", Type: FieldTextarea, Label: "Notes"},
			{ID: "info", Type: FieldDescription, Description: "Read this."},
		},
	}
}

func TestValidateAnswers_Valid(t *testing.T) {
	f := answersForm()
	answers := map[string]string{"topic": "billing", "areas": "A, B", "agree": "true"}
	if err := ValidateAnswers(&f, f.Fields, answers); err != nil {
		t.Fatalf("expected valid answers, got %v", err)
	}
}

func TestValidateAnswers_RequiredMissing(t *testing.T) {
	f := answersForm()
	errs := fieldErrors(t, ValidateAnswers(&f, f.Fields, map[string]string{"topic": " "}))
	if !hasFieldError(errs, "topic") {
		t.Error("expected error on 'topic'")
	}
	if !hasFieldError(errs, "agree") {
		t.Error("expected error on 'agree'")
	}
}

func TestValidateAnswers_RequiredButNotRendered(t *testing.T) {
	f := answersForm()
	rendered := []FormField{f.Fields[3]}
	if err := ValidateAnswers(&f, rendered, map[string]string{}); err != nil {
		t.Fatalf("required fields that are not rendered should be skipped, got %v", err)
	}
}

func TestValidateAnswers_UnknownField(t *testing.T) {
	f := answersForm()
	answers := map[string]string{"topic": "billing", "agree": "true", "bogus": "1"}
	errs := fieldErrors(t, ValidateAnswers(&f, f.Fields, answers))
	if !hasFieldError(errs, "bogus") {
		t.Error("expected error on 'bogus'")
	}
}

func TestValidateAnswers_Options(t *testing.T) {
	f := answersForm()
	tests := []struct {
		name    string
		field   string
		value   string
		wantErr bool
	}{
		{"dropdown member", "topic", "account", false},
		{"dropdown non-member", "topic", "other", true},
		{"dropdown padded member", "topic", " account", true},
		{"checkboxes members", "areas", "B", false},
		{"checkboxes non-member", "areas", "A, C", true},
		{"checkbox bogus", "agree", "yes", true},
		{"checkbox false on required", "agree", "false", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answers := map[string]string{"topic": "billing", "agree": "true"}
			answers[tt.field] = tt.value
			err := ValidateAnswers(&f, f.Fields, answers)
			if tt.wantErr {
				if !hasFieldError(fieldErrors(t, err), tt.field) {
					t.Errorf("expected error on %q, got %v", tt.field, err)
				}
			} else if err != nil {
				t.Errorf("expected valid, got %v", err)
			}
		})
	}
}

func TestValidateAnswers_DescriptionNotAnswerable(t *testing.T) {
	f := answersForm()
	answers := map[string]string{"topic": "billing", "agree": "true", "info": "hello"}
	errs := fieldErrors(t, ValidateAnswers(&f, f.Fields, answers))
	if !hasFieldError(errs, "info") {
		t.Error("expected error on 'info'")
	}
}
