package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"slotsniper/internal/model"
)

// AttemptFunc performs one full booking pass and reports its outcome.
type AttemptFunc func(ctx context.Context) model.BookingOutcome

// RetryScheduler re-runs an attempt at a fixed interval until it produces a
// terminal outcome. At most one attempt is in flight at a time; the interval
// is measured from the end of one attempt to the start of the next.
type RetryScheduler struct {
	logger *slog.Logger
}

func NewRetryScheduler(logger *slog.Logger) *RetryScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryScheduler{logger: logger}
}

// Run drives attempts until one is terminal or ctx is cancelled. A soft
// failure (no slots) waits out the interval; the wait aborts immediately on
// cancellation, never after the interval expires.
func (s *RetryScheduler) Run(ctx context.Context, interval time.Duration, attempt AttemptFunc) model.BookingOutcome {
	for pass := 1; ; pass++ {
		if err := ctx.Err(); err != nil {
			return model.Aborted("cancelled", err.Error())
		}

		outcome := attempt(ctx)
		if outcome.Terminal() {
			return outcome
		}
		s.logger.Info("no slots available, retrying",
			"pass", pass,
			"retry_in", interval.String())

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return model.Aborted("cancelled", ctx.Err().Error())
		case <-timer.C:
		}
	}
}
