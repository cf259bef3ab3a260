// Package snipe executes pre-scheduled booking runs. A worker polls for due
// jobs and runs each one as an ordinary orchestration.
package snipe

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"slotsniper/internal/model"
)

// Store is the persistence surface the worker drives. *storage.Snipes
// satisfies it.
type Store interface {
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]model.SnipeJob, error)
	Complete(ctx context.Context, id int64, result string) error
	Fail(ctx context.Context, id int64, result string, retryAt time.Time) (model.SnipeStatus, error)
}

// Executor runs one booking request to a terminal outcome.
// *orchestrator.Orchestrator satisfies it.
type Executor interface {
	Execute(ctx context.Context, req model.BookingRequest) model.BookingOutcome
}

type Config struct {
	// PollInterval is how often the worker looks for due jobs.
	PollInterval time.Duration
	// ClaimLimit caps jobs claimed per poll. Jobs run sequentially; the
	// automation session is exclusive.
	ClaimLimit int
	// RetryBackoff delays a failed job's next scheduled execution.
	RetryBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 15 * time.Second
	}
	if c.ClaimLimit <= 0 {
		c.ClaimLimit = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 2 * time.Minute
	}
	return c
}

type Worker struct {
	store  Store
	exec   Executor
	cfg    Config
	logger *slog.Logger
}

func NewWorker(store Store, exec Executor, cfg Config, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, exec: exec, cfg: cfg.withDefaults(), logger: logger}
}

// Run polls until ctx is cancelled. It returns ctx.Err().
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.logger.Info("snipe worker started", "poll_interval", w.cfg.PollInterval.String())
	for {
		w.poll(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info("snipe worker stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	jobs, err := w.store.ClaimDue(ctx, time.Now(), w.cfg.ClaimLimit)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("claiming due snipe jobs failed", "error", err)
		}
		return
	}
	for _, job := range jobs {
		if ctx.Err() != nil {
			return
		}
		w.runJob(ctx, job)
	}
}

func (w *Worker) runJob(ctx context.Context, job model.SnipeJob) {
	w.logger.Info("executing snipe job",
		"job_id", job.ID,
		"location", job.Location,
		"target_date", job.TargetDate.Format(model.DateFormat),
		"target_time", job.TargetTime.String(),
		"attempt", job.Attempts)

	outcome := w.exec.Execute(ctx, job.Request())
	result := summarize(outcome)

	if outcome.Kind == model.OutcomeBooked {
		if err := w.store.Complete(ctx, job.ID, result); err != nil {
			w.logger.Error("completing snipe job failed", "job_id", job.ID, "error", err)
		}
		return
	}

	status, err := w.store.Fail(ctx, job.ID, result, time.Now().Add(w.cfg.RetryBackoff))
	if err != nil {
		w.logger.Error("failing snipe job failed", "job_id", job.ID, "error", err)
		return
	}
	w.logger.Warn("snipe job did not book",
		"job_id", job.ID,
		"outcome", string(outcome.Kind),
		"next_status", string(status))
}

func summarize(outcome model.BookingOutcome) string {
	summary := struct {
		Outcome    string `json:"outcome"`
		BookedTime string `json:"booked_time,omitempty"`
		Reference  string `json:"reference,omitempty"`
		Reason     string `json:"reason,omitempty"`
	}{
		Outcome: string(outcome.Kind),
		Reason:  outcome.Reason,
	}
	if outcome.Slot != nil {
		summary.BookedTime = outcome.Slot.Time.String()
		summary.Reference = outcome.ConfirmationRef
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return string(outcome.Kind)
	}
	return string(raw)
}
