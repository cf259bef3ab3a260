// Package cache keeps the most recent availability snapshot per location and
// date. Staleness is advisory: readers always get a coherent snapshot, either
// wholly old or wholly new, tagged with how fresh it is.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"slotsniper/internal/model"
	"slotsniper/internal/search"
)

// DefaultTTL is the advisory freshness horizon for snapshots.
const DefaultTTL = 30 * time.Second

// Store is an optional durable mirror for snapshots. Reads serve cold starts;
// writes happen on every refresh.
type Store interface {
	ReadSlots(ctx context.Context, location string, date time.Time) ([]model.Slot, time.Time, error)
	WriteSlots(ctx context.Context, location string, date time.Time, slots []model.Slot, observedAt time.Time) error
}

// View is one coherent read of a snapshot.
type View struct {
	Slots      []model.Slot
	ObservedAt time.Time
	Stale      bool
}

// Availability holds per-(location, date) snapshots behind a single lock.
// The monitor is the sole writer for any given key; readers never block
// writers for longer than a map swap.
type Availability struct {
	ttl    time.Duration
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	snapshots map[string]snapshot
}

type snapshot struct {
	slots      []model.Slot
	observedAt time.Time
}

func New(ttl time.Duration, store Store, logger *slog.Logger) *Availability {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Availability{
		ttl:       ttl,
		store:     store,
		logger:    logger,
		now:       time.Now,
		snapshots: map[string]snapshot{},
	}
}

func key(location string, date time.Time) string {
	return location + "|" + date.Format(model.DateFormat)
}

// Refresh replaces the snapshot for (location, date) atomically and mirrors
// it to the durable store when one is configured. A mirror failure never
// fails the refresh.
func (a *Availability) Refresh(ctx context.Context, location string, date time.Time, slots []model.Slot) {
	observed := a.now()
	cp := make([]model.Slot, len(slots))
	copy(cp, slots)

	a.mu.Lock()
	a.snapshots[key(location, date)] = snapshot{slots: cp, observedAt: observed}
	a.mu.Unlock()

	if a.store == nil {
		return
	}
	if err := a.store.WriteSlots(ctx, location, date, cp, observed); err != nil {
		a.logger.Warn("availability mirror write failed",
			"location", location,
			"date", date.Format(model.DateFormat),
			"error", err)
	}
}

// Get returns the current snapshot for (location, date). On a memory miss it
// falls back to the durable mirror and warms the in-memory copy. The second
// return is false when no snapshot exists anywhere.
func (a *Availability) Get(ctx context.Context, location string, date time.Time) (View, bool) {
	k := key(location, date)

	a.mu.RLock()
	snap, ok := a.snapshots[k]
	a.mu.RUnlock()

	if !ok && a.store != nil {
		slots, observed, err := a.store.ReadSlots(ctx, location, date)
		if err != nil {
			a.logger.Warn("availability mirror read failed",
				"location", location,
				"date", date.Format(model.DateFormat),
				"error", err)
		} else if !observed.IsZero() {
			snap, ok = snapshot{slots: slots, observedAt: observed}, true
			a.mu.Lock()
			if _, raced := a.snapshots[k]; !raced {
				a.snapshots[k] = snap
			}
			a.mu.Unlock()
		}
	}
	if !ok {
		return View{}, false
	}

	out := make([]model.Slot, len(snap.slots))
	copy(out, snap.slots)
	return View{
		Slots:      out,
		ObservedAt: snap.observedAt,
		Stale:      a.now().Sub(snap.observedAt) > a.ttl,
	}, true
}

// ConsecutiveRuns searches the cached snapshot for runs of hourly slots.
// The view carries the snapshot's staleness so callers can decide whether
// to trust the result or trigger a fresh scrape.
func (a *Availability) ConsecutiveRuns(ctx context.Context, location string, date time.Time, hours int, w search.Window) ([][]model.Slot, View, bool) {
	view, ok := a.Get(ctx, location, date)
	if !ok {
		return nil, View{}, false
	}
	return search.ConsecutiveRuns(view.Slots, hours, w), view, true
}

// Invalidate drops the in-memory snapshot for (location, date). The durable
// mirror keeps its copy.
func (a *Availability) Invalidate(location string, date time.Time) {
	a.mu.Lock()
	delete(a.snapshots, key(location, date))
	a.mu.Unlock()
}

// SetClock overrides the time source. Tests only.
func (a *Availability) SetClock(now func() time.Time) { a.now = now }
