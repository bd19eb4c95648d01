package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/formdesk/internal/cache"
	"github.com/alfredjeanlab/formdesk/internal/events"
	"github.com/alfredjeanlab/formdesk/internal/i18n"
	"github.com/alfredjeanlab/formdesk/internal/media"
	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/alfredjeanlab/formdesk/internal/presence"
	"github.com/alfredjeanlab/formdesk/internal/store"
)

// FormServer serves the form API over HTTP and gRPC.
type FormServer struct {
	store     store.Store
	publisher events.Publisher
	catalog   *i18n.Catalog
	sseHub    *sseHub

	Cache    *cache.FormCache
	Presence *presence.Tracker
	Media    *media.Service

	// PresenceIdle hides editors silent for longer from presence listings.
	PresenceIdle time.Duration

	// objects is set while uploads are kept in memory and served by the
	// HTTP handler itself.
	objects *media.MemoryStore
}

// NewFormServer returns a FormServer backed by the given store and
// publisher. Uploads are kept in memory until UseObjectStore is called.
func NewFormServer(s store.Store, p events.Publisher, catalog *i18n.Catalog) *FormServer {
	objects := media.NewMemoryStore(mediaObjectsPath)
	return &FormServer{
		store:     s,
		publisher: p,
		catalog:   catalog,
		sseHub:    newSSEHub(),
		Cache:     cache.New(s),
		Presence:  presence.New(),
		Media:     media.NewService(objects, s),
		objects:   objects,

		PresenceIdle: 2 * time.Minute,
	}
}

// UseObjectStore stores upload bodies in o instead of memory.
func (s *FormServer) UseObjectStore(o media.ObjectStore) {
	s.Media = media.NewService(o, s.store)
	s.objects = nil
}

// recordAndPublish persists an event to the store and publishes it to NATS.
// Both operations are best-effort; failures are logged but do not block the caller.
func (s *FormServer) recordAndPublish(ctx context.Context, topic, subject, actor string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("failed to marshal event", "topic", topic, "subject", subject, "error", err)
		return
	}
	if err := s.store.RecordEvent(ctx, &model.Event{
		Topic:   topic,
		Subject: subject,
		Actor:   actor,
		Payload: payload,
	}); err != nil {
		slog.Warn("failed to record event", "topic", topic, "subject", subject, "error", err)
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "subject", subject, "error", err)
	}
	s.sseHub.broadcast(topic, payload)
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

// formNotConfigured is the error text for a ticket type without a form.
func formNotConfigured(tt model.TicketType) string {
	return fmt.Sprintf("no form configured for ticket type %q", tt)
}
