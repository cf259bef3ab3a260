package model

import (
	"errors"
	"time"
)

// BookingRequest describes one orchestration run. It is owned by the caller
// and read-only once a run starts.
type BookingRequest struct {
	// AccountID ties the run's durable record to a stored account; zero
	// means the deployment's ambient credentials.
	AccountID    int64
	Date         time.Time
	DesiredTimes []TimeOfDay // priority order, first = most preferred
	Location     string
	SubLocation  string

	RetryInterval    time.Duration
	ConsecutiveHours int // 0 or 1 = single slot

	// WindowStart/WindowEnd bound the consecutive-run search when
	// ConsecutiveHours is above one. Nil means unbounded on that side.
	WindowStart *TimeOfDay
	WindowEnd   *TimeOfDay

	// MaxRunDuration bounds the whole retry loop; zero means unlimited.
	MaxRunDuration time.Duration
}

func (r BookingRequest) Validate() error {
	if r.Date.IsZero() {
		return errors.New("booking date is required")
	}
	if len(r.DesiredTimes) == 0 {
		return errors.New("at least one desired time is required")
	}
	if r.Location == "" {
		return errors.New("location is required")
	}
	if r.RetryInterval <= 0 {
		return errors.New("retry interval must be positive")
	}
	if r.ConsecutiveHours < 0 {
		return errors.New("consecutive hours must be >= 1 when set")
	}
	return nil
}
