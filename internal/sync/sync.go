// Package sync exports event snapshots as JSONL and uploads them on a schedule.
package sync

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Destination is the interface for a sync target.
type Destination interface {
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// Scheduler periodically exports a snapshot of all events to one or more
// destinations.
type Scheduler struct {
	source       Source
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from src to the given
// destinations at the specified interval.
func NewScheduler(src Source, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		source:       src,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
	}
}

// Start begins periodic sync. It runs an initial sync immediately, then
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

// Stop cancels the scheduler and waits for the current sync (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.SyncOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncOnce(ctx)
		}
	}
}

// SyncOnce exports one snapshot and writes it to every destination. It
// returns the number of destinations that failed; an export failure counts
// as all of them.
func (s *Scheduler) SyncOnce(ctx context.Context) int {
	var buf bytes.Buffer
	if err := ExportJSONL(ctx, s.source, &buf); err != nil {
		s.logger.Error("sync export failed", "err", err)
		return len(s.destinations)
	}
	data := buf.Bytes()

	failed := 0
	for i, dest := range s.destinations {
		if err := dest.Write(ctx, data); err != nil {
			failed++
			s.logger.Error("sync destination write failed", "destination", destinationName(i, dest), "err", err)
		}
	}

	s.logger.Info("sync completed", "destinations", len(s.destinations), "failed", failed, "bytes", len(data))
	return failed
}

func destinationName(i int, d Destination) string {
	if n, ok := d.(fmt.Stringer); ok {
		return n.String()
	}
	return fmt.Sprintf("%d", i)
}
