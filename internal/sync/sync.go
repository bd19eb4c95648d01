package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/formdesk/internal/store"
)

// Destination is the interface for a backup target.
type Destination interface {
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// Status reports the outcome of the most recent export.
type Status struct {
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Bytes     int       `json:"bytes"`
}

// Scheduler runs periodic form exports to one or more destinations.
type Scheduler struct {
	store        store.Store
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	mu     sync.Mutex
	status Status

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from the store to the given
// destinations at the specified interval.
func NewScheduler(s store.Store, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:        s,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
	}
}

// Start begins periodic export. It runs an initial export immediately, then
// on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current export (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Status returns the outcome of the most recent export.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Scheduler) run(ctx context.Context) {
	_ = s.SyncNow(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.SyncNow(ctx)
		}
	}
}

// SyncNow exports once and writes to every destination. A failing
// destination does not stop the others; their errors are joined.
func (s *Scheduler) SyncNow(ctx context.Context) error {
	var buf bytes.Buffer
	err := ExportJSONL(ctx, s.store, &buf)
	if err != nil {
		s.logger.Error("form export failed", "err", err)
		s.record(0, err)
		return err
	}
	data := buf.Bytes()

	var errs []error
	for i, dest := range s.destinations {
		if err := dest.Write(ctx, data); err != nil {
			s.logger.Error("export destination write failed", "destination", i, "err", err)
			errs = append(errs, fmt.Errorf("destination %d: %w", i, err))
		}
	}
	err = errors.Join(errs...)
	s.record(len(data), err)

	s.logger.Info("form export completed", "destinations", len(s.destinations), "bytes", len(data), "failed", len(errs))
	return err
}

func (s *Scheduler) record(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = Status{LastRun: time.Now().UTC(), Bytes: n}
	if err != nil {
		s.status.LastError = err.Error()
	}
}
