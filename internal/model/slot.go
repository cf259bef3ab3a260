package model

import "time"

// DateFormat is the wire/database format for booking dates.
const DateFormat = "2006-01-02"

// Slot is a single bookable (location, date, time) unit as last observed on
// the remote listing. One Slot exists per (location, sub_location, date, time).
type Slot struct {
	Location    string
	SubLocation string
	Date        time.Time // date component only
	Time        TimeOfDay

	Available  bool
	MarkedFull bool // listing shows an explicit "full" marker

	// Capacity figures are nil when the listing does not expose them.
	TotalCapacity     *int
	RemainingCapacity *int

	LastObserved time.Time
}

// Key identifies the slot within one (location, date) snapshot.
func (s Slot) Key() string {
	return s.Location + "|" + s.SubLocation + "|" + s.Date.Format(DateFormat) + "|" + s.Time.String()
}

// Bookable reports whether the slot can be pursued: available, not marked
// full, and with non-zero remaining capacity when capacity is known.
func (s Slot) Bookable() bool {
	if !s.Available || s.MarkedFull {
		return false
	}
	if s.RemainingCapacity != nil && *s.RemainingCapacity == 0 {
		return false
	}
	return true
}
