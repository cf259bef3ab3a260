package model

import "time"

// SnipeStatus is the lifecycle of a scheduled booking run.
type SnipeStatus string

const (
	SnipeScheduled SnipeStatus = "scheduled"
	SnipeRunning   SnipeStatus = "running"
	SnipeCompleted SnipeStatus = "completed"
	SnipeFailed    SnipeStatus = "failed"
	SnipeCancelled SnipeStatus = "cancelled"
)

// SnipeJob is a pre-scheduled orchestration run targeting a slot's
// anticipated release time. Execution is an ordinary orchestration run.
type SnipeJob struct {
	ID          int64
	TargetDate  time.Time
	TargetTime  TimeOfDay
	Location    string
	SubLocation string

	// Lower value = higher priority when several jobs are due at once.
	Priority           int
	ScheduledExecution time.Time
	Status             SnipeStatus

	ConsecutiveHours int
	WindowStart      *TimeOfDay
	WindowEnd        *TimeOfDay
	RetryInterval    time.Duration

	Attempts    int
	MaxAttempts int
	Result      string // JSON outcome summary, set on completion
	CreatedAt   time.Time
	ExecutedAt  *time.Time
}

// Request builds the BookingRequest a due snipe job executes.
func (j SnipeJob) Request() BookingRequest {
	interval := j.RetryInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return BookingRequest{
		Date:             j.TargetDate,
		DesiredTimes:     []TimeOfDay{j.TargetTime},
		Location:         j.Location,
		SubLocation:      j.SubLocation,
		RetryInterval:    interval,
		ConsecutiveHours: j.ConsecutiveHours,
		WindowStart:      j.WindowStart,
		WindowEnd:        j.WindowEnd,
	}
}
