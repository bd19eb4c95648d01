package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alfredjeanlab/formdesk/internal/form"
	"github.com/alfredjeanlab/formdesk/internal/media"
	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/alfredjeanlab/formdesk/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ActorHeader names the staff member or submitter making a request.
const ActorHeader = "X-Formdesk-Actor"

const mediaObjectsPath = "/v1/media/objects"

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except health, public and media
// object routes) must include a valid Authorization: Bearer <token> header.
func (s *FormServer) NewHTTPHandler(authToken string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/v1/health", s.handleHealth)

	r.Get("/v1/forms", s.handleListForms)
	r.Get("/v1/forms/{type}", s.handleGetForm)
	r.Put("/v1/forms/{type}", s.handlePutForm)
	r.Delete("/v1/forms/{type}", s.handleDeleteForm)
	r.Get("/v1/forms/{type}/events", s.handleFormEvents)

	r.Post("/v1/forms/{type}/fields", s.handleAddField)
	r.Post("/v1/forms/{type}/fields/reorder", s.handleReorderFields)
	r.Patch("/v1/forms/{type}/fields/{id}", s.handleUpdateField)
	r.Delete("/v1/forms/{type}/fields/{id}", s.handleRemoveField)
	r.Post("/v1/forms/{type}/fields/{id}/move", s.handleMoveField)

	r.Post("/v1/forms/{type}/sections", s.handleAddSection)
	r.Post("/v1/forms/{type}/sections/reorder", s.handleReorderSections)
	r.Patch("/v1/forms/{type}/sections/{id}", s.handleUpdateSection)
	r.Delete("/v1/forms/{type}/sections/{id}", s.handleRemoveSection)

	r.Get("/v1/forms/{type}/presence", s.handleListPresence)
	r.Post("/v1/forms/{type}/presence", s.handlePresence)

	r.Get("/v1/submissions", s.handleListSubmissions)
	r.Get("/v1/submissions/{id}", s.handleGetSubmission)

	r.Post("/v1/media", s.handleUpload)
	r.Get(mediaObjectsPath+"/*", s.handleMediaObject)

	r.Get("/v1/events/stream", s.handleEventStream)

	r.Get("/v1/public/forms/{type}", s.handlePublicForm)
	r.Post("/v1/public/forms/{type}/resolve", s.handleResolve)
	r.Post("/v1/public/forms/{type}/submissions", s.handleSubmit)
	r.Post("/v1/public/media", s.handlePublicUpload)

	return AuthMiddleware(authToken, r)
}

// handleHealth handles GET /v1/health.
func (s *FormServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs one line per request through slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func ticketType(r *http.Request) model.TicketType {
	return model.TicketType(chi.URLParam(r, "type"))
}

func actorOf(r *http.Request) string {
	return r.Header.Get(ActorHeader)
}

// ifMatch reads the If-Match header as a form version.
func ifMatch(r *http.Request) (int, error) {
	return parseVersion(r.Header.Get("If-Match"))
}

// decodeJSON decodes the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// writeForm writes a form response with the form's version as ETag.
func writeForm(w http.ResponseWriter, status int, f *model.Form, body any) {
	w.Header().Set("ETag", strconv.Quote(strconv.Itoa(f.Version)))
	writeJSON(w, status, body)
}

// writeFormError maps errors from form operations to HTTP responses.
func writeFormError(w http.ResponseWriter, tt model.TicketType, err error) {
	var ie inputError
	var ve *model.ValidationError
	switch {
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, formNotConfigured(tt))
	case errors.Is(err, form.ErrFieldNotFound), errors.Is(err, form.ErrSectionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, form.ErrStaleMove), errors.Is(err, store.ErrVersionConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, form.ErrIndexOutOfRange), errors.Is(err, form.ErrDuplicateID), errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": ve.Error(), "details": ve.Errors})
	case errors.Is(err, media.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, media.ErrTypeNotAllowed):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, media.ErrEmpty), errors.Is(err, media.ErrUnknownType):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "ticket_type", tt, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
