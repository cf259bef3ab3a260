// Package orchestrator runs booking requests end to end: authenticate, probe
// the listing, pick a candidate, commit, and classify the outcome. It owns
// the retry policy for soft failures and the termination rules for hard ones.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"slotsniper/internal/cache"
	"slotsniper/internal/model"
	"slotsniper/internal/remote"
	"slotsniper/internal/search"
)

// Client is the slice of the remote driver the orchestrator consumes.
// *remote.Client satisfies it.
type Client interface {
	EnsureAuthenticated(ctx context.Context) error
	FetchListing(ctx context.Context, location string, date time.Time) ([]remote.ListedSlot, error)
	Commit(ctx context.Context, slot remote.ListedSlot) (string, error)
	Snapshot(ctx context.Context) string
}

// RecordStore persists the durable trail of a run. Begin opens a pending
// record before the first attempt; Finalize settles it with the outcome.
type RecordStore interface {
	Begin(ctx context.Context, req model.BookingRequest) (int64, error)
	Finalize(ctx context.Context, id int64, outcome model.BookingOutcome) error
}

// OutcomePublisher emits the terminal outcome of a run to interested
// consumers.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, req model.BookingRequest, outcome model.BookingOutcome) error
}

type Orchestrator struct {
	client  Client
	cache   *cache.Availability
	records RecordStore      // optional
	events  OutcomePublisher // optional
	retry   *RetryScheduler
	logger  *slog.Logger

	// runMu serializes runs: the client drives one exclusive browser
	// session. Queued runs still honor their own context and deadline.
	runMu sync.Mutex
}

func New(client Client, avail *cache.Availability, records RecordStore, events OutcomePublisher, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:  client,
		cache:   avail,
		records: records,
		events:  events,
		retry:   NewRetryScheduler(logger),
		logger:  logger,
	}
}

// Execute runs the request to a terminal outcome. It never returns a soft
// failure: no-slots passes keep retrying until booked, a hard failure, the
// context is cancelled, or MaxRunDuration expires. Panics in an attempt are
// converted to an aborted outcome so a wedged page cannot take the process
// down.
func (o *Orchestrator) Execute(ctx context.Context, req model.BookingRequest) (outcome model.BookingOutcome) {
	if err := req.Validate(); err != nil {
		return model.Aborted("invalid request", err.Error())
	}
	o.runMu.Lock()
	defer o.runMu.Unlock()
	if err := ctx.Err(); err != nil {
		return model.Aborted("cancelled", err.Error())
	}
	if req.MaxRunDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.MaxRunDuration)
		defer cancel()
	}

	var span trace.Span
	ctx, span = otel.Tracer("slotsniper/orchestrator").Start(ctx, "booking.run",
		trace.WithAttributes(
			attribute.String("booking.location", req.Location),
			attribute.String("booking.date", req.Date.Format(model.DateFormat)),
		))
	defer func() {
		span.SetAttributes(attribute.String("booking.outcome", string(outcome.Kind)))
		span.End()
	}()

	var recordID int64
	if o.records != nil {
		id, err := o.records.Begin(ctx, req)
		if err != nil {
			o.logger.Warn("booking record open failed", "error", err)
		} else {
			recordID = id
		}
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = model.Aborted("internal error",
				fmt.Sprintf("panic: %v; %s", r, o.client.Snapshot(context.WithoutCancel(ctx))))
		}
		o.settle(context.WithoutCancel(ctx), recordID, req, outcome)
	}()

	outcome = o.retry.Run(ctx, req.RetryInterval, func(ctx context.Context) model.BookingOutcome {
		return o.attemptOnce(ctx, req)
	})
	return outcome
}

// settle persists and publishes the terminal outcome. It runs on a
// cancellation-proof context: a cancelled run still leaves a trail.
func (o *Orchestrator) settle(ctx context.Context, recordID int64, req model.BookingRequest, outcome model.BookingOutcome) {
	o.logger.Info("orchestration finished",
		"location", req.Location,
		"date", req.Date.Format(model.DateFormat),
		"outcome", string(outcome.Kind),
		"reason", outcome.Reason)

	if o.records != nil && recordID != 0 {
		if err := o.records.Finalize(ctx, recordID, outcome); err != nil {
			o.logger.Error("booking record finalize failed", "record_id", recordID, "error", err)
		}
	}
	if o.events != nil {
		if err := o.events.PublishOutcome(ctx, req, outcome); err != nil {
			o.logger.Error("outcome publish failed", "error", err)
		}
	}
}

// attemptOnce is one full pass: auth, probe, candidate loop. It returns a
// soft no-slots outcome whenever the pass ends with nothing claimable.
func (o *Orchestrator) attemptOnce(ctx context.Context, req model.BookingRequest) model.BookingOutcome {
	if err := o.client.EnsureAuthenticated(ctx); err != nil {
		if errors.Is(err, remote.ErrAuthenticationFailed) {
			return model.AuthenticationFailed(err.Error())
		}
		return model.Aborted("session unavailable", err.Error())
	}

	// A fresh snapshot that already shows nothing claimable saves a probe
	// against the rate-bound remote. Stale snapshots are only advisory and
	// never skip the probe.
	if o.cache != nil {
		if view, ok := o.cache.Get(ctx, req.Location, req.Date); ok && !view.Stale {
			if _, found := o.pickCandidate(view.Slots, req, nil); !found {
				o.logger.Debug("fresh cache shows no candidates, skipping probe",
					"location", req.Location,
					"observed_at", view.ObservedAt)
				return model.NoSlotsAvailable()
			}
		}
	}

	// Slots the pass already attempted. A verification timeout leaves the
	// remote state ambiguous, so the same slot is never re-attempted within
	// one pass.
	tried := map[string]struct{}{}

	for {
		if err := ctx.Err(); err != nil {
			return model.Aborted("cancelled", err.Error())
		}

		listing, err := o.client.FetchListing(ctx, req.Location, req.Date)
		if err != nil {
			switch {
			case errors.Is(err, remote.ErrThrottled):
				o.logger.Debug("probe throttled", "location", req.Location)
				return model.NoSlotsAvailable()
			case ctx.Err() != nil:
				return model.Aborted("cancelled", ctx.Err().Error())
			default:
				return model.Aborted("listing fetch failed",
					fmt.Sprintf("%v; %s", err, o.client.Snapshot(ctx)))
			}
		}

		live := filterSubLocation(listing, req.SubLocation)
		if o.cache != nil {
			o.cache.Refresh(ctx, req.Location, req.Date, plainSlots(listing))
		}

		candidate, ok := o.pickCandidate(plainSlots(live), req, tried)
		if !ok {
			return model.NoSlotsAvailable()
		}
		target, ok := findListed(live, candidate.Key())
		if !ok {
			return model.NoSlotsAvailable()
		}

		ref, err := o.client.Commit(ctx, target)
		switch {
		case err == nil:
			return model.Booked(candidate, ref)
		case errors.Is(err, remote.ErrVerificationTimeout):
			tried[candidate.Key()] = struct{}{}
			o.logger.Warn("booking verification timed out, slot spent for this pass",
				"slot", candidate.Key())
		case errors.Is(err, remote.ErrSlotUnbookable):
			tried[candidate.Key()] = struct{}{}
			o.logger.Info("slot vanished before commit", "slot", candidate.Key())
		case ctx.Err() != nil:
			return model.Aborted("cancelled", ctx.Err().Error())
		default:
			return model.Aborted("booking attempt failed",
				fmt.Sprintf("%v; %s", err, o.client.Snapshot(ctx)))
		}
	}
}

// pickCandidate selects the best untried slot. With ConsecutiveHours above
// one, only slots that open a long-enough run of hourly slots qualify;
// desired times keep strict priority either way.
func (o *Orchestrator) pickCandidate(live []model.Slot, req model.BookingRequest, tried map[string]struct{}) (model.Slot, bool) {
	if req.ConsecutiveHours <= 1 {
		return search.Candidate(live, req.DesiredTimes, tried)
	}
	runs := search.ConsecutiveRuns(live, req.ConsecutiveHours,
		search.Window{Start: req.WindowStart, End: req.WindowEnd})
	for _, want := range req.DesiredTimes {
		for _, run := range runs {
			lead := run[0]
			if lead.Time != want {
				continue
			}
			if _, seen := tried[lead.Key()]; seen {
				continue
			}
			return lead, true
		}
	}
	return model.Slot{}, false
}

// filterSubLocation keeps slots in the requested sub-location. Slots that do
// not advertise one are kept; the remote omits the attribute for venues with
// a single space.
func filterSubLocation(listing []remote.ListedSlot, sub string) []remote.ListedSlot {
	if sub == "" {
		return listing
	}
	out := make([]remote.ListedSlot, 0, len(listing))
	for _, s := range listing {
		if s.SubLocation == "" || s.SubLocation == sub {
			out = append(out, s)
		}
	}
	return out
}

func plainSlots(listing []remote.ListedSlot) []model.Slot {
	out := make([]model.Slot, len(listing))
	for i, s := range listing {
		out[i] = s.Slot
	}
	return out
}

func findListed(listing []remote.ListedSlot, key string) (remote.ListedSlot, bool) {
	for _, s := range listing {
		if s.Key() == key {
			return s, true
		}
	}
	return remote.ListedSlot{}, false
}
