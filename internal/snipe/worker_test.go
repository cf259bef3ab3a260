package snipe

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"slotsniper/internal/model"
)

var testDate = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu        sync.Mutex
	due       []model.SnipeJob // drained on first claim
	claimErr  error
	claims    int
	completed map[int64]string
	failed    map[int64]string
}

func (s *fakeStore) ClaimDue(_ context.Context, _ time.Time, _ int) ([]model.SnipeJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims++
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	jobs := s.due
	s.due = nil
	return jobs, nil
}

func (s *fakeStore) Complete(_ context.Context, id int64, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed == nil {
		s.completed = map[int64]string{}
	}
	s.completed[id] = result
	return nil
}

func (s *fakeStore) Fail(_ context.Context, id int64, result string, _ time.Time) (model.SnipeStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		s.failed = map[int64]string{}
	}
	s.failed[id] = result
	return model.SnipeScheduled, nil
}

type fakeExecutor struct {
	mu       sync.Mutex
	outcome  model.BookingOutcome
	requests []model.BookingRequest
}

func (e *fakeExecutor) Execute(_ context.Context, req model.BookingRequest) model.BookingOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, req)
	return e.outcome
}

func job(id int64) model.SnipeJob {
	return model.SnipeJob{
		ID:                 id,
		TargetDate:         testDate,
		TargetTime:         model.NewTimeOfDay(9, 0),
		Location:           "hall-x1",
		ScheduledExecution: time.Now().Add(-time.Minute),
		Status:             model.SnipeRunning,
		Attempts:           1,
		MaxAttempts:        3,
	}
}

func runOnce(store Store, exec Executor) {
	w := NewWorker(store, exec, Config{PollInterval: time.Hour}, nil)
	w.poll(context.Background())
}

func TestWorkerCompletesBookedJob(t *testing.T) {
	store := &fakeStore{due: []model.SnipeJob{job(7)}}
	exec := &fakeExecutor{outcome: model.Booked(
		model.Slot{Location: "hall-x1", Date: testDate, Time: model.NewTimeOfDay(9, 0)}, "REF-7")}

	runOnce(store, exec)

	if len(exec.requests) != 1 {
		t.Fatalf("executions = %d, want 1", len(exec.requests))
	}
	req := exec.requests[0]
	if req.Location != "hall-x1" || len(req.DesiredTimes) != 1 || req.DesiredTimes[0] != model.NewTimeOfDay(9, 0) {
		t.Fatalf("request = %+v", req)
	}

	result, ok := store.completed[7]
	if !ok {
		t.Fatalf("job not completed; failed=%v", store.failed)
	}
	var summary map[string]string
	if err := json.Unmarshal([]byte(result), &summary); err != nil {
		t.Fatalf("result is not JSON: %q", result)
	}
	if summary["outcome"] != "booked" || summary["reference"] != "REF-7" {
		t.Fatalf("summary = %v", summary)
	}
}

func TestWorkerFailsUnbookedJob(t *testing.T) {
	store := &fakeStore{due: []model.SnipeJob{job(8)}}
	exec := &fakeExecutor{outcome: model.AuthenticationFailed("credentials rejected")}

	runOnce(store, exec)

	if len(store.completed) != 0 {
		t.Fatalf("completed = %v, want none", store.completed)
	}
	result, ok := store.failed[8]
	if !ok {
		t.Fatal("job not failed")
	}
	var summary map[string]string
	if err := json.Unmarshal([]byte(result), &summary); err != nil {
		t.Fatalf("result is not JSON: %q", result)
	}
	if summary["outcome"] != "authentication_failed" {
		t.Fatalf("summary = %v", summary)
	}
}

func TestWorkerRunsJobsSequentially(t *testing.T) {
	store := &fakeStore{due: []model.SnipeJob{job(1), job(2), job(3)}}
	exec := &fakeExecutor{outcome: model.Booked(model.Slot{}, "REF")}

	runOnce(store, exec)

	if len(exec.requests) != 3 {
		t.Fatalf("executions = %d, want 3", len(exec.requests))
	}
	if len(store.completed) != 3 {
		t.Fatalf("completed = %v, want all three", store.completed)
	}
}

func TestWorkerSurvivesClaimErrors(t *testing.T) {
	store := &fakeStore{claimErr: errors.New("pg down")}
	exec := &fakeExecutor{}
	w := NewWorker(store, exec, Config{PollInterval: 5 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		store.mu.Lock()
		claims := store.claims
		store.mu.Unlock()
		if claims >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("worker stopped polling after claim errors")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancellation")
	}
}
