// Package remote drives the booking system's browser-rendered interface
// through an automation.Session. It is the only package that knows the
// remote's page structure.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"slotsniper/internal/automation"
)

var (
	// ErrUnknownLocation means the requested location is not in the catalog.
	ErrUnknownLocation = errors.New("remote: unknown location")

	// ErrThrottled means the probe budget for the window is spent. Soft:
	// the caller retries after its normal interval.
	ErrThrottled = errors.New("remote: probe throttled")

	// ErrVerificationTimeout means a confirm was submitted but the success
	// marker never appeared. The booking state is ambiguous; the same slot
	// must not be re-attempted in the same pass.
	ErrVerificationTimeout = errors.New("remote: booking verification timed out")

	// ErrSlotUnbookable means the slot's card no longer offers a book action.
	ErrSlotUnbookable = errors.New("remote: slot not bookable")
)

// Limiter throttles probes against the remote. Satisfied by
// httpx.RedisRateLimiter.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Client bundles the authenticated session with listing and booking
// operations. Not safe for concurrent use; every concurrent worker gets its
// own client over its own session.
type Client struct {
	sess    automation.Session
	auth    *Auth
	catalog Catalog
	limiter Limiter
	logger  *slog.Logger

	waitTimeout   time.Duration
	verifyTimeout time.Duration
}

func NewClient(sess automation.Session, auth *Auth, catalog Catalog, limiter Limiter, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		sess:          sess,
		auth:          auth,
		catalog:       catalog,
		limiter:       limiter,
		logger:        logger,
		waitTimeout:   defaultWaitTimeout,
		verifyTimeout: defaultVerifyTimeout,
	}
}

func (c *Client) EnsureAuthenticated(ctx context.Context) error {
	return c.auth.EnsureAuthenticated(ctx)
}

func (c *Client) Catalog() Catalog { return c.catalog }

// Snapshot captures page state for diagnostics on unexpected failures.
func (c *Client) Snapshot(ctx context.Context) string {
	url, err := c.sess.CurrentURL(ctx)
	if err != nil {
		return fmt.Sprintf("current url unavailable: %v", err)
	}
	return "url=" + url
}

// allowProbe consults the limiter when one is configured. A limiter error
// fails open: a broken throttle must not halt booking.
func (c *Client) allowProbe(ctx context.Context, key string) error {
	if c.limiter == nil {
		return nil
	}
	ok, err := c.limiter.Allow(ctx, "probe:"+key)
	if err != nil {
		c.logger.Warn("probe limiter unavailable, allowing", "error", err)
		return nil
	}
	if !ok {
		return ErrThrottled
	}
	return nil
}
