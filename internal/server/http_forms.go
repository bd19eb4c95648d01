package server

import (
	"net/http"

	"github.com/alfredjeanlab/formdesk/internal/form"
	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/go-chi/chi/v5"
)

// handleListForms handles GET /v1/forms.
func (s *FormServer) handleListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := s.listForms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list forms")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"forms": forms,
		"total": len(forms),
	})
}

// handleGetForm handles GET /v1/forms/{type}.
func (s *FormServer) handleGetForm(w http.ResponseWriter, r *http.Request) {
	tt := ticketType(r)
	f, err := s.Cache.Get(r.Context(), tt)
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	writeForm(w, http.StatusOK, f, f)
}

// handlePutForm handles PUT /v1/forms/{type}.
func (s *FormServer) handlePutForm(w http.ResponseWriter, r *http.Request) {
	tt := ticketType(r)
	version, err := ifMatch(r)
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	var in model.Form
	if !decodeJSON(w, r, &in) {
		return
	}

	f, err := s.putForm(r.Context(), tt, &in, version, actorOf(r))
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	writeForm(w, http.StatusOK, f, f)
}

// handleDeleteForm handles DELETE /v1/forms/{type}.
func (s *FormServer) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	tt := ticketType(r)
	if err := s.deleteForm(r.Context(), tt, actorOf(r)); err != nil {
		writeFormError(w, tt, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFormEvents handles GET /v1/forms/{type}/events.
func (s *FormServer) handleFormEvents(w http.ResponseWriter, r *http.Request) {
	evts, err := s.store.GetEvents(r.Context(), string(ticketType(r)))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get events")
		return
	}
	if evts == nil {
		evts = []*model.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": evts})
}

// handleAddField handles POST /v1/forms/{type}/fields.
func (s *FormServer) handleAddField(w http.ResponseWriter, r *http.Request) {
	tt := ticketType(r)
	version, err := ifMatch(r)
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	var in addFieldInput
	if !decodeJSON(w, r, &in) {
		return
	}

	f, id, err := s.addField(r.Context(), tt, actorOf(r), version, in)
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	writeForm(w, http.StatusCreated, f, map[string]any{"form": f, "field": f.Field(id)})
}

// handleUpdateField handles PATCH /v1/forms/{type}/fields/{id}.
func (s *FormServer) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	tt, id := ticketType(r), chi.URLParam(r, "id")
	version, err := ifMatch(r)
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	var p form.FieldPatch
	if !decodeJSON(w, r, &p) {
		return
	}

	f, err := s.updateField(r.Context(), tt, actorOf(r), version, id, p)
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	writeForm(w, http.StatusOK, f, map[string]any{"form": f, "field": f.Field(id)})
}

// handleRemoveField handles DELETE /v1/forms/{type}/fields/{id}.
func (s *FormServer) handleRemoveField(w http.ResponseWriter, r *http.Request) {
	tt := ticketType(r)
	version, err := ifMatch(r)
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	f, err := s.removeField(r.Context(), tt, actorOf(r), version, chi.URLParam(r, "id"))
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	writeForm(w, http.StatusOK, f, map[string]any{"form": f})
}

// handleReorderFields handles POST /v1/forms/{type}/fields/reorder.
func (s *FormServer) handleReorderFields(w http.ResponseWriter, r *http.Request) {
	tt := ticketType(r)
	version, err := ifMatch(r)
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	var in reorderInput
	if !decodeJSON(w, r, &in) {
		return
	}

	f, moved, err := s.reorderFields(r.Context(), tt, actorOf(r), version, in)
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	writeForm(w, http.StatusOK, f, map[string]any{"form": f, "moved": moved})
}

// handleMoveField handles POST /v1/forms/{type}/fields/{id}/move.
func (s *FormServer) handleMoveField(w http.ResponseWriter, r *http.Request) {
	tt, id := ticketType(r), chi.URLParam(r, "id")
	version, err := ifMatch(r)
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	var in moveFieldInput
	if !decodeJSON(w, r, &in) {
		return
	}

	f, err := s.moveField(r.Context(), tt, actorOf(r), version, id, in)
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	writeForm(w, http.StatusOK, f, map[string]any{"form": f, "field": f.Field(id)})
}

// handleAddSection handles POST /v1/forms/{type}/sections.
func (s *FormServer) handleAddSection(w http.ResponseWriter, r *http.Request) {
	tt := ticketType(r)
	version, err := ifMatch(r)
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	var in addSectionInput
	if !decodeJSON(w, r, &in) {
		return
	}

	f, id, err := s.addSection(r.Context(), tt, actorOf(r), version, in)
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	writeForm(w, http.StatusCreated, f, map[string]any{"form": f, "section": f.Section(id)})
}

// handleUpdateSection handles PATCH /v1/forms/{type}/sections/{id}.
func (s *FormServer) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	tt, id := ticketType(r), chi.URLParam(r, "id")
	version, err := ifMatch(r)
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	var p form.SectionPatch
	if !decodeJSON(w, r, &p) {
		return
	}

	f, err := s.updateSection(r.Context(), tt, actorOf(r), version, id, p)
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	writeForm(w, http.StatusOK, f, map[string]any{"form": f, "section": f.Section(id)})
}

// handleRemoveSection handles DELETE /v1/forms/{type}/sections/{id}.
func (s *FormServer) handleRemoveSection(w http.ResponseWriter, r *http.Request) {
	tt := ticketType(r)
	version, err := ifMatch(r)
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	f, err := s.removeSection(r.Context(), tt, actorOf(r), version, chi.URLParam(r, "id"))
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	writeForm(w, http.StatusOK, f, map[string]any{"form": f})
}

// handleReorderSections handles POST /v1/forms/{type}/sections/reorder.
func (s *FormServer) handleReorderSections(w http.ResponseWriter, r *http.Request) {
	tt := ticketType(r)
	version, err := ifMatch(r)
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	var in reorderInput
	if !decodeJSON(w, r, &in) {
		return
	}

	f, moved, err := s.reorderSections(r.Context(), tt, actorOf(r), version, in)
	if err != nil {
		writeFormError(w, tt, err)
		return
	}
	writeForm(w, http.StatusOK, f, map[string]any{"form": f, "moved": moved})
}
