// Package client talks to a formdesk server over its HTTP/JSON API, or over
// gRPC for the read-only calls the gRPC service exposes.
package client

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/formdesk/internal/form"
	"github.com/alfredjeanlab/formdesk/internal/model"
)

// FormReader is the read surface both transports serve. Ticket pages and
// the CLI's resolve command only need this.
type FormReader interface {
	GetForm(ctx context.Context, ticketType model.TicketType) (*model.Form, error)
	Resolve(ctx context.Context, ticketType model.TicketType, values map[string]string) (*form.Layout, error)
	Health(ctx context.Context) (string, error)
	Close() error
}

var (
	_ FormReader = (*HTTPClient)(nil)
	_ FormReader = (*GRPCClient)(nil)
)

// Mutation is the response to a field or section edit.
type Mutation struct {
	Form    model.Form         `json:"form"`
	Field   *model.FormField   `json:"field,omitempty"`
	Section *model.FormSection `json:"section,omitempty"`
	// Moved is false when a reorder did not cross the midpoint and nothing
	// was saved.
	Moved bool `json:"moved,omitempty"`
}

// ReorderRequest moves the item at DragIndex. Without HoverRect the move
// commits whenever HoverIndex differs; with Ticks the gesture is replayed.
type ReorderRequest struct {
	SectionID  string           `json:"section_id,omitempty"`
	DragIndex  int              `json:"drag_index"`
	HoverIndex int              `json:"hover_index"`
	HoverRect  *form.Rect       `json:"hover_rect,omitempty"`
	PointerY   float64          `json:"pointer_y,omitempty"`
	Ticks      []form.HoverTick `json:"ticks,omitempty"`
	Cancelled  bool             `json:"cancelled,omitempty"`
}

// MoveFieldRequest moves a field to another section.
type MoveFieldRequest struct {
	FromSectionID string `json:"from_section_id"`
	ToSectionID   string `json:"to_section_id"`
	TargetIndex   *int   `json:"target_index,omitempty"`
}

// ListSubmissionsRequest filters submissions.
type ListSubmissionsRequest struct {
	TicketType model.TicketType
	CreatedBy  string
	Sort       string
	Limit      int
	Offset     int
}

// ListSubmissionsResponse is the response from ListSubmissions.
type ListSubmissionsResponse struct {
	Submissions []*model.Submission `json:"submissions"`
	Total       int                 `json:"total"`
}

// IsNotFound reports whether err is a 404 or a gRPC NotFound from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return status.Code(err) == codes.NotFound
}

// IsConflict reports whether err is a version conflict or a stale move.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}
