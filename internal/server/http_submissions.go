package server

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/go-chi/chi/v5"
)

// handleListSubmissions handles GET /v1/submissions.
func (s *FormServer) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.SubmissionFilter{
		TicketType: model.TicketType(q.Get("ticket_type")),
		CreatedBy:  q.Get("created_by"),
		Sort:       q.Get("sort"),
		Limit:      queryInt(r, "limit"),
		Offset:     queryInt(r, "offset"),
	}

	subs, total, err := s.store.ListSubmissions(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list submissions")
		return
	}
	if subs == nil {
		subs = []*model.Submission{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"submissions": subs,
		"total":       total,
	})
}

// handleGetSubmission handles GET /v1/submissions/{id}.
func (s *FormServer) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.store.GetSubmission(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "submission not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get submission")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
