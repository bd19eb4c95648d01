package model

import "time"

// Submission is a completed ticket form.
type Submission struct {
	ID          string            `json:"id"`
	TicketType  TicketType        `json:"ticket_type"`
	FormVersion int               `json:"form_version"`
	Answers     map[string]string `json:"answers"`
	// Attachments lists the upload keys referenced by file_upload answers.
	Attachments     []string  `json:"attachments,omitempty"`
	VisibleSections []string  `json:"visible_sections"`
	CreatedBy       string    `json:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// SubmissionFilter holds criteria for listing submissions.
type SubmissionFilter struct {
	TicketType TicketType `json:"ticket_type,omitempty"`
	CreatedBy  string     `json:"created_by,omitempty"`
	Sort       string     `json:"sort,omitempty"` // e.g. "created_at"; prefix "-" = descending
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}

// Upload is a stored media object.
type Upload struct {
	Key         string     `json:"key"`
	URL         string     `json:"url"`
	UploadType  UploadType `json:"upload_type"`
	ContentType string     `json:"content_type"`
	Size        int64      `json:"size"`
	Filename    string     `json:"filename,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// UploadType declares what an upload is for; each type has its own
// size limit and MIME allowlist.
type UploadType string

const (
	UploadTicketAttachment UploadType = "ticket_attachment"
	UploadKnowledgebase    UploadType = "knowledgebase"
	UploadAvatar           UploadType = "avatar"
)

// IsValid checks whether the upload type is a known value.
func (t UploadType) IsValid() bool {
	switch t {
	case UploadTicketAttachment, UploadKnowledgebase, UploadAvatar:
		return true
	}
	return false
}
