package model

import (
	"strings"
)

// SplitChoices splits a comma-joined checkboxes answer into its selected
// options, trimming whitespace and dropping empty tokens.
func SplitChoices(value string) []string {
	var out []string
	for _, tok := range strings.Split(value, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// ValidateAnswers checks submitted answers against the fields that are
// rendered for them. It rejects keys that name no field of the form,
// enforces required constraints on rendered fields, and checks that choice
// answers are among the field's options. Answers for fields of the form
// that are not rendered are ignored; callers drop them.
// Returns a *ValidationError on failure, nil on success.
func ValidateAnswers(f *Form, rendered []FormField, answers map[string]string) error {
	var ve ValidationError

	for _, key := range sortedKeys(answers) {
		fld := f.Field(key)
		if fld == nil {
			ve.add(key, CodeUnknownField, "unknown field")
			continue
		}
		if !fld.Type.AcceptsInput() && strings.TrimSpace(answers[key]) != "" {
			ve.add(key, CodeNotAnswerable, "does not accept an answer")
		}
	}

	for i := range rendered {
		fld := &rendered[i]
		if !fld.Type.AcceptsInput() {
			continue
		}
		val := strings.TrimSpace(answers[fld.ID])
		if val == "" {
			if fld.Required {
				ve.add(fld.ID, CodeRequired, "is required")
			}
			continue
		}
		if fe := validateAnswer(fld, answers[fld.ID]); fe != nil {
			ve.Errors = append(ve.Errors, *fe)
		}
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// validateAnswer checks a non-blank answer. Single-choice answers must match
// an option exactly, since visibility rules compare the raw value.
func validateAnswer(fld *FormField, raw string) *FieldError {
	val := strings.TrimSpace(raw)
	switch fld.Type {
	case FieldDropdown, FieldMultipleChoice:
		if !fld.HasOption(raw) {
			return &FieldError{Field: fld.ID, Code: CodeInvalidOption, Message: "must be one of " + strings.Join(fld.Options, ", ")}
		}
	case FieldCheckboxes:
		picked := SplitChoices(val)
		if fld.Required && len(picked) == 0 {
			return &FieldError{Field: fld.ID, Code: CodeRequired, Message: "is required"}
		}
		for _, p := range picked {
			if !fld.HasOption(p) {
				return &FieldError{Field: fld.ID, Code: CodeInvalidOption, Message: "must be one of " + strings.Join(fld.Options, ", ")}
			}
		}
	case FieldCheckbox:
		if val != "true" && val != "false" {
			return &FieldError{Field: fld.ID, Code: CodeInvalid, Message: "must be true or false"}
		}
		if fld.Required && val != "true" {
			return &FieldError{Field: fld.ID, Code: CodeRequired, Message: "is required"}
		}
	}
	return nil
}
