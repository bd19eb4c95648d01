package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/formdesk/internal/model"
)

// ErrVersionConflict is returned by SaveForm when the stored form's version
// differs from the version the caller edited.
var ErrVersionConflict = errors.New("form version conflict")

// Store defines the persistence interface for ticket forms and the
// submissions made against them. Lookups of missing records return
// sql.ErrNoRows.
type Store interface {
	// Forms
	GetForm(ctx context.Context, ticketType model.TicketType) (*model.Form, error)
	ListForms(ctx context.Context) ([]*model.Form, error)
	// SaveForm replaces the stored form with f and bumps its version.
	// An expectedVersion of 0 overwrites unconditionally.
	SaveForm(ctx context.Context, f *model.Form, expectedVersion int) error
	DeleteForm(ctx context.Context, ticketType model.TicketType) error

	// Submissions
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	ListSubmissions(ctx context.Context, filter model.SubmissionFilter) ([]*model.Submission, int, error) // returns submissions, total count, error

	// Uploads
	RecordUpload(ctx context.Context, u *model.Upload) error
	GetUpload(ctx context.Context, key string) (*model.Upload, error)

	// Events
	RecordEvent(ctx context.Context, event *model.Event) error
	GetEvents(ctx context.Context, subject string) ([]*model.Event, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
