package server

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/alfredjeanlab/formdesk/internal/i18n"
	"github.com/alfredjeanlab/formdesk/internal/model"
)

// localizer picks the message language for a public request and announces
// it in Content-Language. It returns nil when the server has no catalog.
func (s *FormServer) localizer(w http.ResponseWriter, r *http.Request) *i18n.Localizer {
	if s.catalog == nil {
		return nil
	}
	accept := r.Header.Get("Accept-Language")
	w.Header().Set("Content-Language", s.catalog.Match(accept))
	return s.catalog.For(accept)
}

// writePublicError is writeFormError with messages localized for the
// person filling in the form. The "error" member stays in English.
func writePublicError(w http.ResponseWriter, loc *i18n.Localizer, tt model.TicketType, f *model.Form, err error) {
	var ve *model.ValidationError
	switch {
	case loc == nil:
		writeFormError(w, tt, err)
	case errors.Is(err, sql.ErrNoRows):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":   formNotConfigured(tt),
			"message": loc.FormNotConfigured(tt),
		})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   ve.Error(),
			"message": loc.ValidationSummary(len(ve.Errors)),
			"details": loc.Answers(f, ve).Errors,
		})
	default:
		writeFormError(w, tt, err)
	}
}

// handlePublicForm handles GET /v1/public/forms/{type}. Query parameters
// are the answers given so far; repeated parameters are joined with commas.
func (s *FormServer) handlePublicForm(w http.ResponseWriter, r *http.Request) {
	tt := ticketType(r)
	loc := s.localizer(w, r)

	values := make(map[string]string)
	for k, vs := range r.URL.Query() {
		values[k] = strings.Join(vs, ",")
	}
	layout, err := s.resolve(r.Context(), tt, values)
	if err != nil {
		writePublicError(w, loc, tt, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

// handleResolve handles POST /v1/public/forms/{type}/resolve.
func (s *FormServer) handleResolve(w http.ResponseWriter, r *http.Request) {
	tt := ticketType(r)
	loc := s.localizer(w, r)

	var in struct {
		Values map[string]string `json:"values"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	layout, err := s.resolve(r.Context(), tt, in.Values)
	if err != nil {
		writePublicError(w, loc, tt, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"visible_sections": layout.VisibleSections,
		"layout":           layout,
	})
}

// handleSubmit handles POST /v1/public/forms/{type}/submissions.
func (s *FormServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	tt := ticketType(r)
	loc := s.localizer(w, r)

	var in struct {
		Answers map[string]string `json:"answers"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.Answers == nil {
		in.Answers = map[string]string{}
	}

	sub, f, err := s.submit(r.Context(), tt, actorOf(r), in.Answers)
	if err != nil {
		writePublicError(w, loc, tt, f, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// handlePublicUpload handles POST /v1/public/media. Submitters may only
// upload ticket attachments.
func (s *FormServer) handlePublicUpload(w http.ResponseWriter, r *http.Request) {
	s.upload(w, r, model.UploadTicketAttachment)
}
