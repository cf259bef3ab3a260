package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"slotsniper/internal/model"
)

func TestRunReturnsTerminalOutcomeImmediately(t *testing.T) {
	var calls atomic.Int32
	s := NewRetryScheduler(nil)

	out := s.Run(context.Background(), time.Hour, func(context.Context) model.BookingOutcome {
		calls.Add(1)
		return model.Booked(model.Slot{Location: "X"}, "REF-1")
	})
	if out.Kind != model.OutcomeBooked {
		t.Fatalf("kind = %s, want booked", out.Kind)
	}
	if calls.Load() != 1 {
		t.Fatalf("attempts = %d, want 1", calls.Load())
	}
}

func TestRunRetriesSoftFailures(t *testing.T) {
	var calls atomic.Int32
	s := NewRetryScheduler(nil)

	out := s.Run(context.Background(), 5*time.Millisecond, func(context.Context) model.BookingOutcome {
		if calls.Add(1) < 3 {
			return model.NoSlotsAvailable()
		}
		return model.Booked(model.Slot{Location: "X"}, "REF-2")
	})
	if out.Kind != model.OutcomeBooked {
		t.Fatalf("kind = %s, want booked", out.Kind)
	}
	if calls.Load() != 3 {
		t.Fatalf("attempts = %d, want 3", calls.Load())
	}
}

func TestRunHardFailureNeverRetries(t *testing.T) {
	var calls atomic.Int32
	s := NewRetryScheduler(nil)

	out := s.Run(context.Background(), time.Nanosecond, func(context.Context) model.BookingOutcome {
		calls.Add(1)
		return model.AuthenticationFailed("credentials rejected")
	})
	if out.Kind != model.OutcomeAuthenticationFailed {
		t.Fatalf("kind = %s, want authentication_failed", out.Kind)
	}
	if calls.Load() != 1 {
		t.Fatalf("attempts = %d, want exactly 1", calls.Load())
	}
}

func TestRunCancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	s := NewRetryScheduler(nil)

	out := s.Run(ctx, time.Hour, func(context.Context) model.BookingOutcome {
		calls.Add(1)
		return model.NoSlotsAvailable()
	})
	if out.Kind != model.OutcomeAborted {
		t.Fatalf("kind = %s, want aborted", out.Kind)
	}
	if calls.Load() != 0 {
		t.Fatalf("attempts = %d, want 0", calls.Load())
	}
}

func TestRunCancellationInterruptsWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewRetryScheduler(nil)

	done := make(chan model.BookingOutcome, 1)
	go func() {
		done <- s.Run(ctx, time.Hour, func(context.Context) model.BookingOutcome {
			return model.NoSlotsAvailable()
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case out := <-done:
		if out.Kind != model.OutcomeAborted {
			t.Fatalf("kind = %s, want aborted", out.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return promptly after cancellation")
	}
}

func TestRunAttemptCountAgainstInterval(t *testing.T) {
	// Attempts start at 0ms, 100ms and 200ms; cancelling at 250ms lands in
	// the third wait, so exactly three attempts run.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(250*time.Millisecond, cancel)

	var calls atomic.Int32
	s := NewRetryScheduler(nil)
	out := s.Run(ctx, 100*time.Millisecond, func(context.Context) model.BookingOutcome {
		calls.Add(1)
		return model.NoSlotsAvailable()
	})

	if out.Kind != model.OutcomeAborted {
		t.Fatalf("kind = %s, want aborted", out.Kind)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
}
