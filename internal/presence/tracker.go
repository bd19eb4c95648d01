// Package presence tracks which staff members are editing which form.
//
// The server records activity whenever an editor sends a heartbeat or
// mutates a form. The admin UI lists active editors to warn about
// concurrent edits, since saves are last-write-wins unless the client sends
// If-Match. A background reaper marks idle editors as gone and later
// evicts them.
package presence

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/formdesk/internal/model"
)

// Entry is one editor's presence on one form.
type Entry struct {
	TicketType  model.TicketType `json:"ticket_type"`
	Actor       string           `json:"actor"`
	FirstSeen   time.Time        `json:"first_seen"`
	LastSeen    time.Time        `json:"last_seen"`
	LastAction  string           `json:"last_action"`           // "heartbeat", "field.added", ...
	LastTarget  string           `json:"last_target,omitempty"` // field or section id
	IdleSecs    float64          `json:"idle_secs"`
	ActionCount int64            `json:"action_count"`
	Edits       int64            `json:"edits"` // mutations, heartbeats excluded
	Gone        bool             `json:"gone,omitempty"`
	GoneAt      time.Time        `json:"gone_at,omitempty"`
}

// ActionHeartbeat is recorded for presence pings that change nothing.
const ActionHeartbeat = "heartbeat"

// Activity is what the server reports to the tracker.
type Activity struct {
	TicketType model.TicketType
	Actor      string
	Action     string
	Target     string
}

// ReaperConfig configures the background idle-editor reaper.
type ReaperConfig struct {
	// IdleThreshold is how long an editor may be silent before being marked gone.
	// Default: 2 minutes.
	IdleThreshold time.Duration

	// EvictAfter is how long a gone editor stays listed. Default: 10 minutes.
	EvictAfter time.Duration

	// SweepInterval is how often the reaper scans. Default: 15 seconds.
	SweepInterval time.Duration

	// OnGone is called for each editor newly marked as gone, outside the lock.
	OnGone func(ticketType model.TicketType, actor string)
}

type key struct {
	ticketType model.TicketType
	actor      string
}

type editorState struct {
	firstSeen   time.Time
	lastSeen    time.Time
	lastAction  string
	lastTarget  string
	actionCount int64
	edits       int64
	gone        bool
	goneAt      time.Time
}

// Tracker maintains the in-memory editor roster.
type Tracker struct {
	mu      sync.RWMutex
	editors map[key]*editorState
	now     func() time.Time

	reaperStop chan struct{}
	reaperDone chan struct{}
}

// New creates a new presence tracker.
func New() *Tracker {
	return &Tracker{
		editors: make(map[key]*editorState),
		now:     time.Now,
	}
}

// Record updates the presence of an editor on a form. Activity without an
// actor or ticket type is ignored.
func (t *Tracker) Record(a Activity) {
	if a.Actor == "" || a.TicketType == "" {
		return
	}
	if a.Action == "" {
		a.Action = ActionHeartbeat
	}

	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key{a.TicketType, a.Actor}
	state, ok := t.editors[k]
	if !ok {
		state = &editorState{firstSeen: now}
		t.editors[k] = state
	}

	if state.gone {
		slog.Info("presence: editor returned", "ticket_type", a.TicketType, "actor", a.Actor)
		state.gone = false
		state.goneAt = time.Time{}
	}

	state.lastSeen = now
	state.lastAction = a.Action
	state.actionCount++
	if a.Action != ActionHeartbeat {
		state.edits++
		state.lastTarget = a.Target
	}
}

// Leave removes an editor from a form immediately.
func (t *Tracker) Leave(ticketType model.TicketType, actor string) {
	t.mu.Lock()
	delete(t.editors, key{ticketType, actor})
	t.mu.Unlock()
}

// Editors returns the editors of one form, most recently active first.
// Editors silent for longer than staleThreshold are excluded; pass 0 to
// include everyone still tracked.
func (t *Tracker) Editors(ticketType model.TicketType, staleThreshold time.Duration) []Entry {
	return t.snapshot(func(k key) bool { return k.ticketType == ticketType }, staleThreshold)
}

// All returns every tracked editor across forms.
func (t *Tracker) All(staleThreshold time.Duration) []Entry {
	return t.snapshot(func(key) bool { return true }, staleThreshold)
}

func (t *Tracker) snapshot(match func(key) bool, staleThreshold time.Duration) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	entries := make([]Entry, 0)
	for k, state := range t.editors {
		if !match(k) {
			continue
		}
		idle := now.Sub(state.lastSeen)
		if staleThreshold > 0 && idle > staleThreshold {
			continue
		}
		entries = append(entries, Entry{
			TicketType:  k.ticketType,
			Actor:       k.actor,
			FirstSeen:   state.firstSeen,
			LastSeen:    state.lastSeen,
			LastAction:  state.lastAction,
			LastTarget:  state.lastTarget,
			IdleSecs:    idle.Seconds(),
			ActionCount: state.actionCount,
			Edits:       state.edits,
			Gone:        state.gone,
			GoneAt:      state.goneAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].LastSeen.Equal(entries[j].LastSeen) {
			return entries[i].LastSeen.After(entries[j].LastSeen)
		}
		return entries[i].Actor < entries[j].Actor
	})
	return entries
}

// StartReaper launches a background goroutine that periodically marks idle
// editors as gone. Call Stop() to shut it down.
func (t *Tracker) StartReaper(cfg *ReaperConfig) {
	if cfg == nil {
		cfg = &ReaperConfig{}
	}
	if cfg.IdleThreshold == 0 {
		cfg.IdleThreshold = 2 * time.Minute
	}
	if cfg.EvictAfter == 0 {
		cfg.EvictAfter = 10 * time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 15 * time.Second
	}

	t.reaperStop = make(chan struct{})
	t.reaperDone = make(chan struct{})

	go t.reapLoop(cfg)
	slog.Info("presence: reaper started",
		"idle_threshold", cfg.IdleThreshold,
		"sweep_interval", cfg.SweepInterval)
}

// Stop shuts down the reaper goroutine.
func (t *Tracker) Stop() {
	if t.reaperStop != nil {
		close(t.reaperStop)
		<-t.reaperDone
		t.reaperStop = nil
		t.reaperDone = nil
	}
}

func (t *Tracker) reapLoop(cfg *ReaperConfig) {
	defer close(t.reaperDone)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.reaperStop:
			return
		case <-ticker.C:
			t.sweep(cfg)
		}
	}
}

func (t *Tracker) sweep(cfg *ReaperConfig) {
	now := t.now()
	var newlyGone []key

	t.mu.Lock()
	for k, state := range t.editors {
		if state.gone {
			if now.Sub(state.goneAt) > cfg.EvictAfter {
				delete(t.editors, k)
			}
			continue
		}
		if now.Sub(state.lastSeen) > cfg.IdleThreshold {
			state.gone = true
			state.goneAt = now
			newlyGone = append(newlyGone, k)
		}
	}
	t.mu.Unlock()

	for _, k := range newlyGone {
		slog.Info("presence: editor went idle", "ticket_type", k.ticketType, "actor", k.actor)
		if cfg.OnGone != nil {
			cfg.OnGone(k.ticketType, k.actor)
		}
	}
}
