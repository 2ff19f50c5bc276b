// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/rinkside/generation"
)

// WorkerConfig tunes the background worker.
type WorkerConfig struct {
	Interval    time.Duration // idle wait once the queue is drained
	Concurrency int
	StaleAfter  time.Duration // in_progress longer than this is reclaimed
}

// Worker drains the queue in the background.
type Worker struct {
	proc  *Processor
	store *Store
	cfg   WorkerConfig
}

func NewWorker(proc *Processor, store *Store, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 20 * time.Second
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	return &Worker{proc: proc, store: store, cfg: cfg}
}

// Run processes jobs until ctx is cancelled. Each of the configured loops
// drains the queue, then waits one interval. A separate loop reclaims jobs
// abandoned by a crashed process.
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("job worker starting",
		"concurrency", w.cfg.Concurrency,
		"interval", w.cfg.Interval.String(),
		"stale_after", w.cfg.StaleAfter.String())

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		loop := i
		g.Go(func() error { return w.loop(ctx, loop) })
	}
	g.Go(func() error { return w.reclaimLoop(ctx) })

	err := g.Wait()
	slog.Info("job worker stopped")
	return err
}

func (w *Worker) loop(ctx context.Context, n int) error {
	for {
		w.drain(ctx, n)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.cfg.Interval):
		}
	}
}

func (w *Worker) drain(ctx context.Context, n int) {
	for ctx.Err() == nil {
		_, err := w.proc.ProcessNext(ctx)
		switch {
		case err == nil:
			continue
		case errors.Is(err, ErrNoPendingJobs):
		case errors.Is(err, generation.ErrDisabled):
			slog.Warn("job worker idle: generation is disabled", "loop", n)
		case ctx.Err() != nil:
		default:
			slog.Error("job worker", "loop", n, "error", err)
		}
		return
	}
}

func (w *Worker) reclaimLoop(ctx context.Context) error {
	every := w.cfg.StaleAfter / 2
	if every < time.Second {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		n, err := w.store.ReclaimStale(ctx, w.store.now().Add(-w.cfg.StaleAfter))
		switch {
		case err != nil && ctx.Err() == nil:
			slog.Error("reclaim stale jobs", "error", err)
		case n > 0:
			slog.Warn("reclaimed stale jobs", "count", n)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
