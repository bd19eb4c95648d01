package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/formdesk/internal/events"
)

// Invalidator keeps a FormCache coherent with writes made by other replicas.
type Invalidator struct {
	cache  *FormCache
	logger *slog.Logger
}

// NewInvalidator creates an invalidator for c.
func NewInvalidator(c *FormCache, logger *slog.Logger) *Invalidator {
	return &Invalidator{cache: c, logger: logger}
}

// Handle applies one raw form event to the cache.
func (inv *Invalidator) Handle(raw []byte) {
	ref, err := events.DecodeFormRef(raw)
	if err != nil {
		inv.logger.Warn("cache: bad form event", "err", err)
		return
	}
	if inv.cache.InvalidateOlder(ref.TicketType, ref.Version) {
		inv.logger.Debug("cache: invalidated form", "ticket_type", ref.TicketType, "version", ref.Version)
	}
}

// Run listens for form events on the bus and invalidates stale entries.
// It blocks until ctx is cancelled.
func (inv *Invalidator) Run(ctx context.Context, sub events.Subscriber) error {
	ch, cancel, err := sub.Subscribe(events.TopicAllForms)
	if err != nil {
		return fmt.Errorf("cache: subscribe: %w", err)
	}
	defer cancel()

	inv.logger.Info("cache: invalidator started")

	for {
		select {
		case <-ctx.Done():
			inv.logger.Info("cache: invalidator stopping")
			return nil
		case raw, ok := <-ch:
			if !ok {
				inv.logger.Info("cache: subscription channel closed")
				return nil
			}
			inv.Handle(raw)
		}
	}
}
