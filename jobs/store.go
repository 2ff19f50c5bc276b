// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/danielhkuo/rinkside/content"
	"github.com/danielhkuo/rinkside/db"
	"github.com/danielhkuo/rinkside/models"
)

var (
	ErrNoPendingJobs = errors.New("no pending jobs")
	ErrNotFound      = errors.New("job not found")
	ErrInvalidState  = errors.New("job is not in a state that allows this")
)

const (
	DefaultMaxAttempts = 3
	DefaultStaleAfter  = 10 * time.Minute

	baseBackoff = 30 * time.Second
	maxBackoff  = 10 * time.Minute

	maxErrorLength = 1000
)

const jobColumns = `id, source_content_id, content_kind, status, attempts, max_attempts,
	last_error, result_count, next_attempt_at, started_at, completed_at, created_at, updated_at`

// Job is one (source content, kind) generation task.
type Job struct {
	ID              string     `json:"id"`
	SourceContentID string     `json:"source_content_id"`
	Kind            string     `json:"content_kind"`
	Status          string     `json:"status"`
	Attempts        int        `json:"attempts"`
	MaxAttempts     int        `json:"max_attempts"`
	LastError       *string    `json:"last_error"`
	ResultCount     int        `json:"result_count"`
	NextAttemptAt   *time.Time `json:"next_attempt_at"`
	StartedAt       *time.Time `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ListQuery selects a page of jobs.
type ListQuery struct {
	Status          string
	Kind            string
	SourceContentID string
	Page            int
	Limit           int
}

// Store persists the generation queue in the generation_jobs table.
type Store struct {
	db          *sql.DB
	dialect     db.Dialect
	maxAttempts int
	now         func() time.Time
}

// NewStore creates a Store. Jobs enqueued through it get maxAttempts
// attempts before they fail for good.
func NewStore(conn *sql.DB, dialect db.Dialect, maxAttempts int) *Store {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Store{
		db:          conn,
		dialect:     dialect,
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue creates a pending job per kind for the source. Kinds that already
// have a job for this source are returned as skipped. An empty kinds list
// means every generatable kind.
func (s *Store) Enqueue(ctx context.Context, sourceContentID string, kinds []string) ([]Job, []string, error) {
	kinds, err := resolveKinds(kinds)
	if err != nil {
		return nil, nil, err
	}

	var ids []string
	var skipped []string
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM source_content WHERE id = $1", sourceContentID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("source content %s: %w", sourceContentID, content.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("check source content: %w", err)
		}

		now := s.now()
		for _, kind := range kinds {
			id := uuid.NewString()
			res, err := tx.ExecContext(ctx,
				`INSERT INTO generation_jobs (id, source_content_id, content_kind, status, max_attempts, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $6)
				 ON CONFLICT (source_content_id, content_kind) DO NOTHING`,
				id, sourceContentID, kind, models.JobPending, s.maxAttempts, now)
			if err != nil {
				return fmt.Errorf("enqueue %s: %w", kind, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				skipped = append(skipped, kind)
				continue
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	created := make([]Job, 0, len(ids))
	for _, id := range ids {
		job, err := s.Get(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		created = append(created, *job)
	}
	slog.Info("jobs enqueued", "source_content_id", sourceContentID, "created", len(created), "skipped", len(skipped))
	return created, skipped, nil
}

// Claim atomically moves the oldest due pending job to in_progress and
// counts the attempt. It returns ErrNoPendingJobs when nothing is due.
func (s *Store) Claim(ctx context.Context) (*Job, error) {
	now := s.now()
	var id string
	err := s.db.QueryRowContext(ctx,
		`UPDATE generation_jobs
		 SET status = $1, attempts = attempts + 1, started_at = $2, next_attempt_at = NULL, updated_at = $2
		 WHERE id = (
		     SELECT id FROM generation_jobs
		     WHERE status = $3 AND (next_attempt_at IS NULL OR next_attempt_at <= $2)
		     ORDER BY created_at, id
		     LIMIT 1`+s.dialect.SkipLocked()+`
		 ) AND status = $3
		 RETURNING id`,
		models.JobInProgress, now, models.JobPending).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoPendingJobs
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return s.Get(ctx, id)
}

// Complete marks a claimed job done. attempt is the job's attempt count
// at claim time; a job that was reclaimed and claimed again since then
// returns ErrInvalidState.
func (s *Store) Complete(ctx context.Context, id string, attempt, resultCount int) (*Job, error) {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE generation_jobs
		 SET status = $1, result_count = $2, last_error = NULL, completed_at = $3, updated_at = $3
		 WHERE id = $4 AND status = $5 AND attempts = $6`,
		models.JobCompleted, resultCount, now, id, models.JobInProgress, attempt)
	if err != nil {
		return nil, fmt.Errorf("complete job: %w", err)
	}
	if err := s.checkAffected(ctx, res, id); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Fail records cause on a claimed job. The job goes back to pending with a
// backoff delay, or to failed once it has used all its attempts. attempt
// guards against a newer claim the same way as in Complete.
func (s *Store) Fail(ctx context.Context, id string, attempt int, cause error) (*Job, error) {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	msg = truncate(msg, maxErrorLength)

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var status string
		var attempts, maxAttempts int
		err := tx.QueryRowContext(ctx,
			"SELECT status, attempts, max_attempts FROM generation_jobs WHERE id = $1"+s.dialect.ForUpdate(), id).
			Scan(&status, &attempts, &maxAttempts)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load job: %w", err)
		}
		if status != models.JobInProgress {
			return fmt.Errorf("fail job in status %s: %w", status, ErrInvalidState)
		}
		if attempts != attempt {
			return fmt.Errorf("fail job claimed for attempt %d, now at %d: %w", attempt, attempts, ErrInvalidState)
		}

		now := s.now()
		if attempts >= maxAttempts {
			_, err = tx.ExecContext(ctx,
				`UPDATE generation_jobs SET status = $1, last_error = $2, completed_at = $3, updated_at = $3 WHERE id = $4`,
				models.JobFailed, msg, now, id)
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE generation_jobs SET status = $1, last_error = $2, next_attempt_at = $3, updated_at = $4 WHERE id = $5`,
				models.JobPending, msg, now.Add(Backoff(attempts)), now, id)
		}
		if err != nil {
			return fmt.Errorf("record job failure: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Retry puts a failed job back in the queue with a fresh set of attempts.
func (s *Store) Retry(ctx context.Context, id string) (*Job, error) {
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE generation_jobs
		 SET status = $1, attempts = 0, last_error = NULL, next_attempt_at = NULL,
		     started_at = NULL, completed_at = NULL, updated_at = $2
		 WHERE id = $3 AND status = $4`,
		models.JobPending, now, id, models.JobFailed)
	if err != nil {
		return nil, fmt.Errorf("retry job: %w", err)
	}
	if err := s.checkAffected(ctx, res, id); err != nil {
		return nil, err
	}
	slog.Info("job requeued", "job_id", id)
	return s.Get(ctx, id)
}

// ReclaimStale returns jobs claimed before cutoff to the queue. A worker
// that died mid-job leaves them in_progress forever otherwise. Jobs with no
// attempts left are failed instead.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := s.now()
		res, err := tx.ExecContext(ctx,
			`UPDATE generation_jobs
			 SET status = $1, last_error = $2, completed_at = $3, updated_at = $3
			 WHERE status = $4 AND started_at < $5 AND attempts >= max_attempts`,
			models.JobFailed, "worker stopped before finishing", now, models.JobInProgress, cutoff.UTC())
		if err != nil {
			return fmt.Errorf("fail stale jobs: %w", err)
		}
		failed, _ := res.RowsAffected()

		res, err = tx.ExecContext(ctx,
			`UPDATE generation_jobs
			 SET status = $1, next_attempt_at = NULL, updated_at = $2
			 WHERE status = $3 AND started_at < $4`,
			models.JobPending, now, models.JobInProgress, cutoff.UTC())
		if err != nil {
			return fmt.Errorf("reclaim stale jobs: %w", err)
		}
		requeued, _ := res.RowsAffected()
		total = failed + requeued
		return nil
	})
	return total, err
}

// Get returns one job.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	jobs, err := s.query(ctx, "SELECT "+jobColumns+" FROM generation_jobs WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, ErrNotFound
	}
	return &jobs[0], nil
}

// List returns a page of jobs, newest first, and the total matching.
func (s *Store) List(ctx context.Context, q ListQuery) ([]Job, int, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = content.DefaultLimit
	}
	if q.Limit > content.MaxLimit {
		q.Limit = content.MaxLimit
	}

	var where []string
	var args []any
	add := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		where = append(where, col+" = $"+strconv.Itoa(len(args)))
	}
	add("status", q.Status)
	add("content_kind", q.Kind)
	add("source_content_id", q.SourceContentID)

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM generation_jobs"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	args = append(args, q.Limit, (q.Page-1)*q.Limit)
	jobs, err := s.query(ctx,
		"SELECT "+jobColumns+" FROM generation_jobs"+clause+
			" ORDER BY created_at DESC, id LIMIT $"+strconv.Itoa(len(args)-1)+" OFFSET $"+strconv.Itoa(len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// Stats counts jobs per status. Every status is present in the result.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	stats := map[string]int{
		models.JobPending:    0,
		models.JobInProgress: 0,
		models.JobCompleted:  0,
		models.JobFailed:     0,
	}
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM generation_jobs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan job stats: %w", err)
		}
		stats[status] = n
	}
	return stats, rows.Err()
}

// Backoff is the delay before retrying a job that has failed attempts
// times: 30s doubling per attempt, capped at ten minutes.
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := baseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var lastError sql.NullString
		var next, started, completed sql.NullTime
		if err := rows.Scan(&j.ID, &j.SourceContentID, &j.Kind, &j.Status, &j.Attempts, &j.MaxAttempts,
			&lastError, &j.ResultCount, &next, &started, &completed, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if lastError.Valid {
			j.LastError = &lastError.String
		}
		j.NextAttemptAt = timePtr(next)
		j.StartedAt = timePtr(started)
		j.CompletedAt = timePtr(completed)
		j.CreatedAt = j.CreatedAt.UTC()
		j.UpdatedAt = j.UpdatedAt.UTC()
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// checkAffected turns a zero-row update into ErrNotFound or
// ErrInvalidState.
func (s *Store) checkAffected(ctx context.Context, res sql.Result, id string) error {
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrInvalidState
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func resolveKinds(kinds []string) ([]string, error) {
	if len(kinds) == 0 {
		for _, k := range content.GeneratableKinds() {
			kinds = append(kinds, k.Name)
		}
		return kinds, nil
	}

	seen := map[string]bool{}
	var out []string
	for _, name := range kinds {
		k, ok := content.Lookup(name)
		if !ok || !k.Generatable {
			return nil, content.Invalid("kinds", fmt.Sprintf("%q is not a generatable kind", name))
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	u := t.Time.UTC()
	return &u
}
