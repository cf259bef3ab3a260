// Package monitor keeps availability snapshots warm by periodically scraping
// the watched locations. It is the sole writer for the cache keys it watches.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"slotsniper/internal/cache"
	"slotsniper/internal/model"
	"slotsniper/internal/remote"
)

// Client is the slice of the remote driver the monitor consumes.
// *remote.Client satisfies it.
type Client interface {
	EnsureAuthenticated(ctx context.Context) error
	FetchListing(ctx context.Context, location string, date time.Time) ([]remote.ListedSlot, error)
}

// SlotsPublisher emits availability updates after each successful scrape.
type SlotsPublisher interface {
	PublishSlots(ctx context.Context, location string, date time.Time, slots []model.Slot) error
}

// Target is one watched (location, date) pair.
type Target struct {
	Location string
	Date     time.Time
}

type Config struct {
	// PollInterval is the gap between scan rounds.
	PollInterval time.Duration
	// LocationDelay spaces out probes within a round so a long target list
	// does not burst against the rate-bound remote.
	LocationDelay time.Duration
	// StopTimeout bounds how long Stop waits for the loop to exit.
	StopTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Minute
	}
	if c.LocationDelay < 0 {
		c.LocationDelay = 0
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 10 * time.Second
	}
	return c
}

type Monitor struct {
	client Client
	cache  *cache.Availability
	events SlotsPublisher // optional
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func New(client Client, avail *cache.Availability, events SlotsPublisher, cfg Config, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		client: client,
		cache:  avail,
		events: events,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Start launches the scan loop for targets. Starting an already-running
// monitor is a logged no-op; the original loop and its targets keep going.
func (m *Monitor) Start(ctx context.Context, targets []Target) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		m.logger.Warn("monitor already running, start ignored")
		return
	}
	if len(targets) == 0 {
		m.logger.Warn("monitor started with no targets")
	}

	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})

	go m.loop(ctx, targets, m.stop, m.done)
	m.logger.Info("monitor started",
		"targets", len(targets),
		"poll_interval", m.cfg.PollInterval.String())
}

// Stop signals the loop and waits for it up to StopTimeout. Stopping a
// stopped monitor is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	stop, done := m.stop, m.done
	m.running = false
	m.mu.Unlock()

	close(stop)
	select {
	case <-done:
		m.logger.Info("monitor stopped")
	case <-time.After(m.cfg.StopTimeout):
		m.logger.Error("monitor loop did not exit in time", "timeout", m.cfg.StopTimeout.String())
	}
}

// loop sleeps the full poll interval after each round, so a slow scan never
// makes rounds run back to back.
func (m *Monitor) loop(ctx context.Context, targets []Target, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		m.scan(ctx, targets, stop)

		timer := time.NewTimer(m.cfg.PollInterval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// scan runs one round over every target. Failures on one target never stop
// the rest of the round.
func (m *Monitor) scan(ctx context.Context, targets []Target, stop <-chan struct{}) {
	ctx, span := otel.Tracer("slotsniper/monitor").Start(ctx, "monitor.scan",
		trace.WithAttributes(attribute.Int("monitor.targets", len(targets))))
	defer span.End()

	if err := m.client.EnsureAuthenticated(ctx); err != nil {
		m.logger.Warn("monitor round skipped, session not authenticated", "error", err)
		return
	}

	for i, t := range targets {
		if i > 0 && m.cfg.LocationDelay > 0 {
			timer := time.NewTimer(m.cfg.LocationDelay)
			select {
			case <-stop:
				timer.Stop()
				return
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		m.scanTarget(ctx, t)
	}
}

func (m *Monitor) scanTarget(ctx context.Context, t Target) {
	listing, err := m.client.FetchListing(ctx, t.Location, t.Date)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, remote.ErrThrottled) {
			level = slog.LevelDebug
		}
		m.logger.Log(ctx, level, "monitor scrape failed",
			"location", t.Location,
			"date", t.Date.Format(model.DateFormat),
			"error", err)
		return
	}

	slots := make([]model.Slot, len(listing))
	for i, s := range listing {
		slots[i] = s.Slot
	}
	m.cache.Refresh(ctx, t.Location, t.Date, slots)
	m.logger.Debug("availability refreshed",
		"location", t.Location,
		"date", t.Date.Format(model.DateFormat),
		"slots", len(slots))

	if m.events != nil {
		if err := m.events.PublishSlots(ctx, t.Location, t.Date, slots); err != nil {
			m.logger.Error("availability publish failed", "location", t.Location, "error", err)
		}
	}
}
