// Package cache holds the form cache shared by the HTTP and gRPC
// transports. It is created explicitly and invalidated explicitly, either by
// the server after its own writes or by an Invalidator listening on the bus.
package cache

import (
	"context"
	"sync"

	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/alfredjeanlab/formdesk/internal/store"
)

// FormCache is a read-through cache of forms keyed by ticket type.
// Forms are cloned on the way in and out, so callers may mutate what they get.
type FormCache struct {
	store store.Store

	mu    sync.RWMutex
	forms map[model.TicketType]*model.Form
}

// New creates an empty cache over s.
func New(s store.Store) *FormCache {
	return &FormCache{store: s, forms: make(map[model.TicketType]*model.Form)}
}

// Get returns the cached form for ticketType, loading it from the store on
// a miss. Store errors (including sql.ErrNoRows) are returned unchanged and
// never cached.
func (c *FormCache) Get(ctx context.Context, ticketType model.TicketType) (*model.Form, error) {
	c.mu.RLock()
	f, ok := c.forms[ticketType]
	c.mu.RUnlock()
	if ok {
		return f.Clone(), nil
	}

	f, err := c.store.GetForm(ctx, ticketType)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// A concurrent Put may have stored a newer version while we loaded.
	if cur, ok := c.forms[ticketType]; !ok || cur.Version < f.Version {
		c.forms[ticketType] = f.Clone()
	}
	c.mu.Unlock()
	return f, nil
}

// Put stores a freshly saved form. An older version never replaces a newer one.
func (c *FormCache) Put(f *model.Form) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.forms[f.TicketType]; ok && cur.Version > f.Version {
		return
	}
	c.forms[f.TicketType] = f.Clone()
}

// Invalidate drops the entry for ticketType.
func (c *FormCache) Invalidate(ticketType model.TicketType) {
	c.mu.Lock()
	delete(c.forms, ticketType)
	c.mu.Unlock()
}

// InvalidateOlder drops the entry for ticketType unless it already holds
// version or newer. A version of 0 always invalidates. It reports whether an
// entry was dropped.
func (c *FormCache) InvalidateOlder(ticketType model.TicketType, version int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.forms[ticketType]
	if !ok {
		return false
	}
	if version > 0 && cur.Version >= version {
		return false
	}
	delete(c.forms, ticketType)
	return true
}

// InvalidateAll empties the cache.
func (c *FormCache) InvalidateAll() {
	c.mu.Lock()
	c.forms = make(map[model.TicketType]*model.Form)
	c.mu.Unlock()
}

// Len returns the number of cached forms.
func (c *FormCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.forms)
}
