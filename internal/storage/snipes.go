package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"slotsniper/internal/model"
	"slotsniper/libs/db"
)

// Snipes stores pre-scheduled booking runs. Due jobs are claimed with
// FOR UPDATE SKIP LOCKED so multiple workers never execute the same job.
type Snipes struct {
	pool *db.Pool
}

func NewSnipes(pool *db.Pool) *Snipes { return &Snipes{pool: pool} }

func (s *Snipes) Create(ctx context.Context, job model.SnipeJob) (int64, error) {
	interval := job.RetryInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	var windowStart, windowEnd any
	if job.WindowStart != nil {
		windowStart = int(*job.WindowStart)
	}
	if job.WindowEnd != nil {
		windowEnd = int(*job.WindowEnd)
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO snipe_jobs
			(target_date, target_minutes, location, sub_location, priority,
			 scheduled_execution, status, consecutive_hours, window_start,
			 window_end, retry_interval_ms, max_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, 'scheduled', $7, $8, $9, $10, $11)
		RETURNING id`,
		job.TargetDate, int(job.TargetTime), job.Location, job.SubLocation, job.Priority,
		job.ScheduledExecution, job.ConsecutiveHours, windowStart, windowEnd,
		interval.Milliseconds(), maxAttempts).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("storage: create snipe job: %w", err)
	}
	return id, nil
}

// ClaimDue atomically claims up to limit due jobs, marking them running.
// Higher-priority (lower value) jobs are claimed first.
func (s *Snipes) ClaimDue(ctx context.Context, now time.Time, limit int) ([]model.SnipeJob, error) {
	if limit <= 0 {
		limit = 1
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: claim snipe jobs: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, target_date, target_minutes, location, sub_location, priority,
		       scheduled_execution, status, consecutive_hours, window_start,
		       window_end, retry_interval_ms, attempts, max_attempts, result,
		       created_at, executed_at
		FROM snipe_jobs
		WHERE status = 'scheduled' AND scheduled_execution <= $1
		ORDER BY priority, scheduled_execution
		LIMIT $2
		FOR UPDATE SKIP LOCKED`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: select due snipe jobs: %w", err)
	}
	jobs, err := scanSnipes(rows)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]int64, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	if _, err := tx.Exec(ctx, `
		UPDATE snipe_jobs
		SET status = 'running', attempts = attempts + 1, executed_at = now()
		WHERE id = ANY($1)`, ids); err != nil {
		return nil, fmt.Errorf("storage: mark snipe jobs running: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("storage: commit snipe claim: %w", err)
	}

	for i := range jobs {
		jobs[i].Status = model.SnipeRunning
		jobs[i].Attempts++
	}
	return jobs, nil
}

// Complete settles a running job as completed with an outcome summary.
func (s *Snipes) Complete(ctx context.Context, id int64, result string) error {
	return s.settle(ctx, id, string(model.SnipeCompleted), result)
}

// Fail settles a running job: back to scheduled at retryAt while attempts
// remain, failed otherwise. The returned status tells the worker which.
func (s *Snipes) Fail(ctx context.Context, id int64, result string, retryAt time.Time) (model.SnipeStatus, error) {
	var status string
	err := s.pool.QueryRow(ctx, `
		UPDATE snipe_jobs
		SET status = CASE WHEN attempts < max_attempts THEN 'scheduled' ELSE 'failed' END,
		    scheduled_execution = CASE WHEN attempts < max_attempts THEN $2 ELSE scheduled_execution END,
		    result = $3
		WHERE id = $1 AND status = 'running'
		RETURNING status`, id, retryAt, result).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("storage: fail snipe job: %w", err)
	}
	return model.SnipeStatus(status), nil
}

func (s *Snipes) settle(ctx context.Context, id int64, status, result string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE snipe_jobs SET status = $2, result = $3
		WHERE id = $1 AND status = 'running'`, id, status, result)
	if err != nil {
		return fmt.Errorf("storage: settle snipe job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Snipes) Get(ctx context.Context, id int64) (model.SnipeJob, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, target_date, target_minutes, location, sub_location, priority,
		       scheduled_execution, status, consecutive_hours, window_start,
		       window_end, retry_interval_ms, attempts, max_attempts, result,
		       created_at, executed_at
		FROM snipe_jobs WHERE id = $1`, id)
	if err != nil {
		return model.SnipeJob{}, fmt.Errorf("storage: get snipe job: %w", err)
	}
	jobs, err := scanSnipes(rows)
	if err != nil {
		return model.SnipeJob{}, err
	}
	if len(jobs) == 0 {
		return model.SnipeJob{}, ErrNotFound
	}
	return jobs[0], nil
}

// List returns jobs by soonest execution first, optionally filtered by status.
func (s *Snipes) List(ctx context.Context, status model.SnipeStatus, limit int) ([]model.SnipeJob, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, target_date, target_minutes, location, sub_location, priority,
		       scheduled_execution, status, consecutive_hours, window_start,
		       window_end, retry_interval_ms, attempts, max_attempts, result,
		       created_at, executed_at
		FROM snipe_jobs
		WHERE ($1 = '' OR status = $1)
		ORDER BY scheduled_execution
		LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list snipe jobs: %w", err)
	}
	return scanSnipes(rows)
}

// Cancel withdraws a job that has not started running.
func (s *Snipes) Cancel(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE snipe_jobs SET status = 'cancelled'
		WHERE id = $1 AND status = 'scheduled'`, id)
	if err != nil {
		return fmt.Errorf("storage: cancel snipe job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSnipes(rows pgx.Rows) ([]model.SnipeJob, error) {
	defer rows.Close()
	var out []model.SnipeJob
	for rows.Next() {
		var j model.SnipeJob
		var minutes int
		var status string
		var windowStart, windowEnd *int
		var intervalMS int64
		err := rows.Scan(&j.ID, &j.TargetDate, &minutes, &j.Location, &j.SubLocation, &j.Priority,
			&j.ScheduledExecution, &status, &j.ConsecutiveHours, &windowStart,
			&windowEnd, &intervalMS, &j.Attempts, &j.MaxAttempts, &j.Result,
			&j.CreatedAt, &j.ExecutedAt)
		if err != nil {
			return nil, fmt.Errorf("storage: scan snipe job: %w", err)
		}
		j.TargetTime = model.TimeOfDay(minutes)
		j.Status = model.SnipeStatus(status)
		j.RetryInterval = time.Duration(intervalMS) * time.Millisecond
		if windowStart != nil {
			t := model.TimeOfDay(*windowStart)
			j.WindowStart = &t
		}
		if windowEnd != nil {
			t := model.TimeOfDay(*windowEnd)
			j.WindowEnd = &t
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
