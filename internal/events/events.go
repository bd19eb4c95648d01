package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/formdesk/internal/model"
)

// Event topic constants
const (
	TopicFormSaved   = "formdesk.form.saved"
	TopicFormDeleted = "formdesk.form.deleted"

	TopicFieldAdded   = "formdesk.form.field.added"
	TopicFieldUpdated = "formdesk.form.field.updated"
	TopicFieldRemoved = "formdesk.form.field.removed"
	TopicFieldMoved   = "formdesk.form.field.moved"

	TopicSectionAdded   = "formdesk.form.section.added"
	TopicSectionUpdated = "formdesk.form.section.updated"
	TopicSectionRemoved = "formdesk.form.section.removed"
	TopicSectionMoved   = "formdesk.form.section.moved"

	TopicSubmissionCreated = "formdesk.submission.created"
	TopicUploadCreated     = "formdesk.upload.created"

	// TopicAllForms matches every form event.
	TopicAllForms = "formdesk.form.>"
	// TopicAll matches every formdesk event.
	TopicAll = "formdesk.>"
)

// Form events. Every form event carries the ticket type and, except for
// deletion, the version the form reached with the change.

type FormSaved struct {
	TicketType model.TicketType `json:"ticket_type"`
	Version    int              `json:"version"`
	Fields     int              `json:"fields"`
	Sections   int              `json:"sections"`
}

// FormDeleted carries no version so every replica drops its copy.
type FormDeleted struct {
	TicketType model.TicketType `json:"ticket_type"`
}

type FieldAdded struct {
	TicketType model.TicketType `json:"ticket_type"`
	Version    int              `json:"version"`
	Field      *model.FormField `json:"field"`
}

type FieldUpdated struct {
	TicketType model.TicketType `json:"ticket_type"`
	Version    int              `json:"version"`
	Field      *model.FormField `json:"field"`
	Changes    map[string]any   `json:"changes"` // field name -> new value
}

type FieldRemoved struct {
	TicketType model.TicketType `json:"ticket_type"`
	Version    int              `json:"version"`
	FieldID    string           `json:"field_id"`
	// DetachedSections lists sections whose show-if rule named the field.
	DetachedSections []string `json:"detached_sections,omitempty"`
}

type FieldMoved struct {
	TicketType    model.TicketType `json:"ticket_type"`
	Version       int              `json:"version"`
	FieldID       string           `json:"field_id"`
	FromSectionID string           `json:"from_section_id,omitempty"`
	ToSectionID   string           `json:"to_section_id,omitempty"`
	Order         int              `json:"order"`
}

type SectionAdded struct {
	TicketType model.TicketType   `json:"ticket_type"`
	Version    int                `json:"version"`
	Section    *model.FormSection `json:"section"`
}

type SectionUpdated struct {
	TicketType model.TicketType   `json:"ticket_type"`
	Version    int                `json:"version"`
	Section    *model.FormSection `json:"section"`
	Changes    map[string]any     `json:"changes"`
}

type SectionRemoved struct {
	TicketType    model.TicketType `json:"ticket_type"`
	Version       int              `json:"version"`
	SectionID     string           `json:"section_id"`
	RemovedFields []string         `json:"removed_fields,omitempty"`
}

type SectionMoved struct {
	TicketType model.TicketType `json:"ticket_type"`
	Version    int              `json:"version"`
	SectionID  string           `json:"section_id"`
	Order      int              `json:"order"`
}

// Submission and media events

type SubmissionCreated struct {
	Submission *model.Submission `json:"submission"`
}

type UploadCreated struct {
	Upload *model.Upload `json:"upload"`
}

// FormRef is the part shared by every form event payload.
type FormRef struct {
	TicketType model.TicketType `json:"ticket_type"`
	Version    int              `json:"version"`
}

// DecodeFormRef extracts the ticket type and version from a raw form event.
func DecodeFormRef(data []byte) (FormRef, error) {
	var ref FormRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return FormRef{}, fmt.Errorf("decoding form event: %w", err)
	}
	if ref.TicketType == "" {
		return FormRef{}, fmt.Errorf("form event has no ticket_type")
	}
	return ref, nil
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
