package server

import (
	"errors"
	"net/http"

	"github.com/alfredjeanlab/formdesk/internal/events"
	"github.com/alfredjeanlab/formdesk/internal/media"
	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead is allowed on top of the largest upload limit for the
// multipart framing and the other form values.
const multipartOverhead = 1 << 20

// handleUpload handles POST /v1/media (multipart: file, upload_type).
func (s *FormServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.upload(w, r, "")
}

// upload stores the request's file. An empty uploadType is read from the
// upload_type form value.
func (s *FormServer) upload(w http.ResponseWriter, r *http.Request, uploadType model.UploadType) {
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxBytes(media.DefaultPolicies)+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	if uploadType == "" {
		uploadType = model.UploadType(r.FormValue("upload_type"))
	}
	actor := actorOf(r)
	u, err := s.Media.Upload(r.Context(), media.Request{
		Type:     uploadType,
		Filename: header.Filename,
		Body:     file,
		Actor:    actor,
	})
	if err != nil {
		writeFormError(w, "", err)
		return
	}

	s.recordAndPublish(r.Context(), events.TopicUploadCreated, u.Key, actor, events.UploadCreated{Upload: u})
	writeJSON(w, http.StatusCreated, u)
}

// handleMediaObject handles GET /v1/media/objects/*, serving uploads kept
// in memory.
func (s *FormServer) handleMediaObject(w http.ResponseWriter, r *http.Request) {
	if s.objects == nil {
		writeError(w, http.StatusNotFound, "object not found")
		return
	}
	data, ok := s.objects.Get(chi.URLParam(r, "*"))
	if !ok {
		writeError(w, http.StatusNotFound, "object not found")
		return
	}
	w.Header().Set("Content-Type", media.Sniff(data))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	_, _ = w.Write(data)
}
