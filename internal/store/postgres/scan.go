package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/formdesk/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanForm scans a single row into a model.Form without its sections or
// fields. The row must contain columns in the order defined by formColumns.
func scanForm(row scannable) (*model.Form, error) {
	var f model.Form
	var updatedBy sql.NullString
	err := row.Scan(&f.TicketType, &f.Title, &f.Version, &f.CreatedAt, &f.UpdatedAt, &updatedBy)
	if err != nil {
		return nil, err
	}
	f.UpdatedBy = updatedBy.String
	return &f, nil
}

// scanForms scans multiple rows into a slice of model.Form pointers.
func scanForms(rows *sql.Rows) ([]*model.Form, error) {
	var forms []*model.Form
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return forms, nil
}

// scanSections scans section rows in the order defined by sectionColumns.
func scanSections(rows *sql.Rows) ([]model.FormSection, error) {
	sections := []model.FormSection{}
	for rows.Next() {
		var (
			s           model.FormSection
			description sql.NullString
			showIfField sql.NullString
			showIfValue sql.NullString
			showIfVals  []byte
		)
		err := rows.Scan(&s.ID, &s.Title, &description, &s.Order,
			&showIfField, &showIfValue, &showIfVals, &s.HideByDefault)
		if err != nil {
			return nil, err
		}
		s.Description = description.String
		s.ShowIfFieldID = showIfField.String
		s.ShowIfValue = showIfValue.String
		if err := decodeJSONB(showIfVals, &s.ShowIfValues); err != nil {
			return nil, fmt.Errorf("section %s show_if_values: %w", s.ID, err)
		}
		sections = append(sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sections, nil
}

// scanFields scans field rows in the order defined by fieldColumns.
func scanFields(rows *sql.Rows) ([]model.FormField, error) {
	fields := []model.FormField{}
	for rows.Next() {
		var (
			f           model.FormField
			description sql.NullString
			options     []byte
			sectionID   sql.NullString
			goTo        sql.NullString
			mapping     []byte
		)
		err := rows.Scan(&f.ID, &f.Type, &f.Label, &description, &f.Required, &options,
			&f.Order, &sectionID, &goTo, &mapping)
		if err != nil {
			return nil, err
		}
		f.Description = description.String
		f.SectionID = sectionID.String
		f.GoToSection = goTo.String
		if err := decodeJSONB(options, &f.Options); err != nil {
			return nil, fmt.Errorf("field %s options: %w", f.ID, err)
		}
		if err := decodeJSONB(mapping, &f.OptionSectionMapping); err != nil {
			return nil, fmt.Errorf("field %s option_section_mapping: %w", f.ID, err)
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return fields, nil
}

// scanSubmission scans a single row into a model.Submission.
// The row must contain columns in the order defined by submissionColumns.
func scanSubmission(row scannable) (*model.Submission, error) {
	s, _, err := scanSubmissionRow(row, false)
	return s, err
}

// scanSubmissionWithTotal scans a row that has a leading total_count column
// followed by the standard submission columns. Used by queryListSubmissions
// with COUNT(*) OVER().
func scanSubmissionWithTotal(row scannable) (*model.Submission, int, error) {
	return scanSubmissionRow(row, true)
}

func scanSubmissionRow(row scannable, withTotal bool) (*model.Submission, int, error) {
	var (
		total       int
		s           model.Submission
		answers     []byte
		attachments []byte
		visible     []byte
		createdBy   sql.NullString
	)
	dest := []any{&s.ID, &s.TicketType, &s.FormVersion, &answers, &attachments, &visible, &createdBy, &s.CreatedAt}
	if withTotal {
		dest = append([]any{&total}, dest...)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, 0, err
	}
	s.CreatedBy = createdBy.String
	if err := decodeJSONB(answers, &s.Answers); err != nil {
		return nil, 0, fmt.Errorf("submission %s answers: %w", s.ID, err)
	}
	if err := decodeJSONB(attachments, &s.Attachments); err != nil {
		return nil, 0, fmt.Errorf("submission %s attachments: %w", s.ID, err)
	}
	if err := decodeJSONB(visible, &s.VisibleSections); err != nil {
		return nil, 0, fmt.Errorf("submission %s visible_sections: %w", s.ID, err)
	}
	return &s, total, nil
}

// scanUpload scans a single row into a model.Upload.
func scanUpload(row scannable) (*model.Upload, error) {
	var (
		u         model.Upload
		filename  sql.NullString
		createdBy sql.NullString
	)
	err := row.Scan(&u.Key, &u.URL, &u.UploadType, &u.ContentType, &u.Size, &filename, &createdBy, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.Filename = filename.String
	u.CreatedBy = createdBy.String
	return &u, nil
}

// scanEvent scans a single row into a model.Event.
func scanEvent(row scannable) (*model.Event, error) {
	var e model.Event
	var (
		actor   sql.NullString
		payload []byte
	)
	err := row.Scan(&e.ID, &e.Topic, &e.Subject, &actor, &payload, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Actor = actor.String
	if len(payload) > 0 {
		e.Payload = json.RawMessage(payload)
	}
	return &e, nil
}

// scanEvents scans multiple rows into a slice of model.Event pointers.
func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// jsonbValue marshals v for a JSONB column. Nil and empty slices and maps
// are stored as NULL.
func jsonbValue(v any) []byte {
	switch x := v.(type) {
	case []string:
		if len(x) == 0 {
			return nil
		}
	case map[string]string:
		if len(x) == 0 {
			return nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// decodeJSONB unmarshals a JSONB column into dst; NULL leaves dst unchanged.
func decodeJSONB(b []byte, dst any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}
