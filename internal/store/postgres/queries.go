package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/alfredjeanlab/formdesk/internal/store"
)

const formColumns = `ticket_type, title, version, created_at, updated_at, updated_by`

const sectionColumns = `id, title, description, position,
	show_if_field_id, show_if_value, show_if_values, hide_by_default`

const fieldColumns = `id, type, label, description, required, options,
	position, section_id, go_to_section, option_section_mapping`

const submissionColumns = `id, ticket_type, form_version, answers, attachments,
	visible_sections, created_by, created_at`

const uploadColumns = `key, url, upload_type, content_type, size, filename, created_by, created_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryGetForm(ctx context.Context, db executor, ticketType model.TicketType) (*model.Form, error) {
	row := db.QueryRowContext(ctx, `SELECT `+formColumns+` FROM forms WHERE ticket_type = $1`, string(ticketType))
	f, err := scanForm(row)
	if err != nil {
		return nil, err
	}
	if err := loadFormChildren(ctx, db, f); err != nil {
		return nil, err
	}
	return f, nil
}

func queryListForms(ctx context.Context, db executor) ([]*model.Form, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+formColumns+` FROM forms ORDER BY ticket_type`)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	forms, err := scanForms(rows)
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("scan forms: %w", err)
	}

	// Children are loaded after the form rows are closed so the queries can
	// share a transaction's connection.
	for _, f := range forms {
		if err := loadFormChildren(ctx, db, f); err != nil {
			return nil, err
		}
	}
	return forms, nil
}

func loadFormChildren(ctx context.Context, db executor, f *model.Form) error {
	rows, err := db.QueryContext(ctx, `
		SELECT `+sectionColumns+`
		FROM form_sections
		WHERE ticket_type = $1
		ORDER BY position`,
		string(f.TicketType),
	)
	if err != nil {
		return fmt.Errorf("get sections: %w", err)
	}
	f.Sections, err = scanSections(rows)
	rows.Close()
	if err != nil {
		return fmt.Errorf("scan sections: %w", err)
	}

	rows, err = db.QueryContext(ctx, `
		SELECT `+fieldColumns+`
		FROM form_fields
		WHERE ticket_type = $1
		ORDER BY section_id NULLS FIRST, position`,
		string(f.TicketType),
	)
	if err != nil {
		return fmt.Errorf("get fields: %w", err)
	}
	f.Fields, err = scanFields(rows)
	rows.Close()
	if err != nil {
		return fmt.Errorf("scan fields: %w", err)
	}
	return nil
}

// querySaveForm upserts the form row, guarded by the expected version, and
// rewrites its sections and fields. It must run inside a transaction.
func querySaveForm(ctx context.Context, db executor, f *model.Form, expectedVersion int) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO forms (ticket_type, title, updated_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticket_type) DO UPDATE
		SET title = $2, updated_by = $3, version = forms.version + 1, updated_at = NOW()
		WHERE $4 = 0 OR forms.version = $4
		RETURNING version, created_at, updated_at`,
		string(f.TicketType), f.Title, nullString(f.UpdatedBy), expectedVersion,
	).Scan(&f.Version, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("save form: %w", err)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM form_fields WHERE ticket_type = $1`, string(f.TicketType)); err != nil {
		return fmt.Errorf("clear fields: %w", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM form_sections WHERE ticket_type = $1`, string(f.TicketType)); err != nil {
		return fmt.Errorf("clear sections: %w", err)
	}

	for _, s := range f.Sections {
		_, err := db.ExecContext(ctx, `
			INSERT INTO form_sections (
				ticket_type, id, title, description, position,
				show_if_field_id, show_if_value, show_if_values, hide_by_default
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			string(f.TicketType), s.ID, s.Title, nullString(s.Description), s.Order,
			nullString(s.ShowIfFieldID), nullString(s.ShowIfValue), jsonbValue(s.ShowIfValues), s.HideByDefault,
		)
		if err != nil {
			return fmt.Errorf("insert section %s: %w", s.ID, err)
		}
	}

	for _, fld := range f.Fields {
		_, err := db.ExecContext(ctx, `
			INSERT INTO form_fields (
				ticket_type, id, type, label, description, required, options,
				position, section_id, go_to_section, option_section_mapping
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			string(f.TicketType), fld.ID, string(fld.Type), fld.Label, nullString(fld.Description), fld.Required,
			jsonbValue(fld.Options), fld.Order, nullString(fld.SectionID), nullString(fld.GoToSection),
			jsonbValue(fld.OptionSectionMapping),
		)
		if err != nil {
			return fmt.Errorf("insert field %s: %w", fld.ID, err)
		}
	}
	return nil
}

func queryDeleteForm(ctx context.Context, db executor, ticketType model.TicketType) error {
	res, err := db.ExecContext(ctx, `DELETE FROM forms WHERE ticket_type = $1`, string(ticketType))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func queryCreateSubmission(ctx context.Context, db executor, sub *model.Submission) error {
	answers := sub.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	return db.QueryRowContext(ctx, `
		INSERT INTO submissions (
			id, ticket_type, form_version, answers, attachments, visible_sections, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		sub.ID, string(sub.TicketType), sub.FormVersion, answersJSON,
		jsonbValue(sub.Attachments), jsonbValue(sub.VisibleSections), nullString(sub.CreatedBy),
	).Scan(&sub.CreatedAt)
}

func queryGetSubmission(ctx context.Context, db executor, id string) (*model.Submission, error) {
	row := db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	return scanSubmission(row)
}

func queryListSubmissions(ctx context.Context, db executor, filter model.SubmissionFilter) ([]*model.Submission, int, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if filter.TicketType != "" {
		whereClauses = append(whereClauses, "ticket_type = "+nextArg())
		args = append(args, string(filter.TicketType))
	}
	if filter.CreatedBy != "" {
		whereClauses = append(whereClauses, "created_by = "+nextArg())
		args = append(args, filter.CreatedBy)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + submissionColumns + " FROM submissions" + whereSQL + " ORDER BY " + parseSortClause(filter.Sort)

	if filter.Limit > 0 {
		dataQuery += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		dataQuery += " OFFSET " + nextArg()
		args = append(args, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*model.Submission
	var total int
	for rows.Next() {
		s, t, err := scanSubmissionWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan submissions: %w", err)
		}
		total = t
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan submissions: %w", err)
	}
	return subs, total, nil
}

func queryRecordUpload(ctx context.Context, db executor, u *model.Upload) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO uploads (key, url, upload_type, content_type, size, filename, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (key) DO UPDATE SET url = $2
		RETURNING created_at`,
		u.Key, u.URL, string(u.UploadType), u.ContentType, u.Size, nullString(u.Filename), nullString(u.CreatedBy),
	).Scan(&u.CreatedAt)
}

func queryGetUpload(ctx context.Context, db executor, key string) (*model.Upload, error) {
	row := db.QueryRowContext(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE key = $1`, key)
	return scanUpload(row)
}

func queryRecordEvent(ctx context.Context, db executor, e *model.Event) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO events (topic, subject, actor, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		e.Topic, e.Subject, e.Actor, []byte(e.Payload),
	).Scan(&e.ID, &e.CreatedAt)
}

func queryGetEvents(ctx context.Context, db executor, subject string) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, topic, subject, actor, payload, created_at
		FROM events
		WHERE subject = $1
		ORDER BY created_at ASC`,
		subject,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func parseSortClause(sort string) string {
	if sort == "" {
		return "created_at DESC"
	}
	desc := strings.HasPrefix(sort, "-")
	col := strings.TrimPrefix(sort, "-")
	allowed := map[string]bool{
		"created_at": true, "ticket_type": true, "form_version": true,
	}
	if !allowed[col] {
		return "created_at DESC"
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}
