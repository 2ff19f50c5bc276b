// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielhkuo/rinkside/content"
	"github.com/danielhkuo/rinkside/generation"
	"github.com/danielhkuo/rinkside/metrics"
	"github.com/danielhkuo/rinkside/models"
)

// Processor runs queued jobs: it generates drafts of the job's kind from
// the job's source content and saves them.
type Processor struct {
	jobs       *Store
	content    *content.Store
	gen        *generation.Service
	staleAfter time.Duration
}

// NewProcessor creates a Processor. Jobs left in_progress for longer than
// staleAfter are put back in the queue before each claim.
func NewProcessor(jobs *Store, contentStore *content.Store, gen *generation.Service, staleAfter time.Duration) *Processor {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Processor{jobs: jobs, content: contentStore, gen: gen, staleAfter: staleAfter}
}

// ProcessNext reclaims stale jobs, then claims and runs one job. A failed
// run is recorded on the job and is not returned as an error; errors mean
// the queue itself could not be read or written. It returns
// ErrNoPendingJobs when nothing is due and generation.ErrDisabled without
// claiming when no model is configured.
func (p *Processor) ProcessNext(ctx context.Context) (*Job, error) {
	if !p.gen.Enabled() {
		return nil, generation.ErrDisabled
	}

	if n, err := p.jobs.ReclaimStale(ctx, p.jobs.now().Add(-p.staleAfter)); err != nil {
		return nil, err
	} else if n > 0 {
		slog.Warn("reclaimed stale jobs", "count", n)
	}

	job, err := p.jobs.Claim(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("job claimed", "job_id", job.ID, "kind", job.Kind, "attempt", job.Attempts)

	created, runErr := p.run(ctx, job)

	// Bookkeeping still has to land if the caller gave up mid-run.
	bookCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		failed, err := p.jobs.Fail(bookCtx, job.ID, job.Attempts, runErr)
		if errors.Is(err, ErrInvalidState) {
			return p.lostClaim(bookCtx, job)
		}
		if err != nil {
			return nil, err
		}
		outcome := "retry"
		if failed.Status == models.JobFailed {
			outcome = "failed"
		}
		metrics.Jobs.WithLabelValues(job.Kind, outcome).Inc()
		slog.Warn("job failed", "job_id", job.ID, "kind", job.Kind, "attempt", job.Attempts,
			"status", failed.Status, "error", runErr)
		return failed, nil
	}

	done, err := p.jobs.Complete(bookCtx, job.ID, job.Attempts, created)
	if errors.Is(err, ErrInvalidState) {
		return p.lostClaim(bookCtx, job)
	}
	if err != nil {
		return nil, err
	}
	metrics.Jobs.WithLabelValues(job.Kind, "completed").Inc()
	slog.Info("job completed", "job_id", job.ID, "kind", job.Kind, "created", created)
	return done, nil
}

// ProcessBatch runs up to max jobs one after another and returns those it
// ran. Running out of work is not an error.
func (p *Processor) ProcessBatch(ctx context.Context, max int) ([]Job, error) {
	var ran []Job
	for len(ran) < max {
		job, err := p.ProcessNext(ctx)
		if errors.Is(err, ErrNoPendingJobs) {
			break
		}
		if err != nil {
			return ran, err
		}
		ran = append(ran, *job)
	}
	return ran, nil
}

// lostClaim handles a job that was reclaimed as stale while this run held
// it. The newer claim owns the job's state.
func (p *Processor) lostClaim(ctx context.Context, job *Job) (*Job, error) {
	slog.Warn("job reclaimed before run finished", "job_id", job.ID, "kind", job.Kind, "attempt", job.Attempts)
	return p.jobs.Get(ctx, job.ID)
}

func (p *Processor) run(ctx context.Context, job *Job) (int, error) {
	kind, ok := content.Lookup(job.Kind)
	if !ok {
		return 0, fmt.Errorf("unknown kind %q", job.Kind)
	}
	source, ok := content.Lookup(content.SourceKind)
	if !ok {
		return 0, errors.New("source content kind is not registered")
	}

	rec, err := p.content.Get(ctx, source, job.SourceContentID)
	if err != nil {
		return 0, fmt.Errorf("load source content: %w", err)
	}

	text := strings.TrimSpace(rec.String("title") + "\n\n" + rec.String("content_text"))
	res, err := p.gen.Generate(ctx, kind, generation.Input{SourceText: text})
	if err != nil {
		return 0, err
	}

	created, skipped, err := p.content.SaveGenerated(ctx, kind, job.SourceContentID, res.Items)
	if err != nil {
		return 0, fmt.Errorf("save generated %s: %w", kind.Name, err)
	}
	if skipped > 0 || res.Dropped > 0 {
		slog.Info("generated items not saved", "job_id", job.ID, "duplicates", skipped, "invalid", res.Dropped)
	}
	return len(created), nil
}
