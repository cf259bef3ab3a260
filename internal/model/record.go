package model

import "time"

// RecordStatus is the lifecycle of a persisted booking record.
type RecordStatus string

const (
	RecordPending   RecordStatus = "pending"
	RecordConfirmed RecordStatus = "confirmed"
	RecordFailed    RecordStatus = "failed"
	RecordCancelled RecordStatus = "cancelled"
)

// BookingRecord is the durable trail of one requested slot claim.
type BookingRecord struct {
	ID           int64
	AccountID    int64
	Date         time.Time
	Time         TimeOfDay
	Location     string
	SubLocation  string
	Status       RecordStatus
	Reference    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RecordEvent is one audit-log entry for a booking record.
type RecordEvent struct {
	ID        int64
	RecordID  int64
	EventType string
	Message   string
	CreatedAt time.Time
}

// RecordStats summarizes record outcomes for an account (or all accounts).
type RecordStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	// SuccessRate is confirmed/(confirmed+failed) in percent, 0 when no attempts.
	SuccessRate float64 `json:"success_rate"`
}
