package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/alfredjeanlab/formdesk/internal/presence"
)

// handleListPresence handles GET /v1/forms/{type}/presence.
// Query params: stale (duration, default PresenceIdle; "0" lists everyone tracked).
func (s *FormServer) handleListPresence(w http.ResponseWriter, r *http.Request) {
	stale := s.PresenceIdle
	if v := r.URL.Query().Get("stale"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid stale duration")
			return
		}
		stale = d
	}

	editors := s.Presence.Editors(ticketType(r), stale)
	if editors == nil {
		editors = []presence.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"editors": editors})
}

// handlePresence handles POST /v1/forms/{type}/presence, the admin UI's
// heartbeat while a form is open. {"leave": true} ends the session.
func (s *FormServer) handlePresence(w http.ResponseWriter, r *http.Request) {
	tt := ticketType(r)
	actor := actorOf(r)
	if actor == "" {
		writeError(w, http.StatusBadRequest, ActorHeader+" header is required")
		return
	}
	var in struct {
		Leave bool `json:"leave"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if in.Leave {
		s.Presence.Leave(tt, actor)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if _, err := s.Cache.Get(r.Context(), tt); err != nil {
		writeFormError(w, tt, err)
		return
	}
	s.Presence.Record(presence.Activity{TicketType: tt, Actor: actor, Action: presence.ActionHeartbeat})
	writeJSON(w, http.StatusOK, map[string]any{"editors": s.Presence.Editors(tt, s.PresenceIdle)})
}
