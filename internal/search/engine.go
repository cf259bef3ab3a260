// Package search implements pure candidate selection over slot listings.
// It never talks to the remote system; callers pass in whatever snapshot
// they hold (a live scrape or a cache view).
package search

import "slotsniper/internal/model"

// Candidate returns the highest-priority bookable slot from live. Desired
// times are tried strictly in order; the first time with a bookable,
// non-excluded slot wins regardless of how many slots later times have.
// exclude holds slot keys already attempted in the current pass.
func Candidate(live []model.Slot, desired []model.TimeOfDay, exclude map[string]struct{}) (model.Slot, bool) {
	for _, want := range desired {
		for _, s := range live {
			if s.Time != want || !s.Bookable() {
				continue
			}
			if _, seen := exclude[s.Key()]; seen {
				continue
			}
			return s, true
		}
	}
	return model.Slot{}, false
}

// Bookable filters live down to slots a booking attempt could target.
func Bookable(live []model.Slot) []model.Slot {
	out := make([]model.Slot, 0, len(live))
	for _, s := range live {
		if s.Bookable() {
			out = append(out, s)
		}
	}
	return out
}
