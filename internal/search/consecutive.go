package search

import (
	"sort"

	"slotsniper/internal/model"
)

// Window bounds slot start times, inclusive on both ends. A nil bound is
// unbounded on that side.
type Window struct {
	Start *model.TimeOfDay
	End   *model.TimeOfDay
}

func (w Window) contains(t model.TimeOfDay) bool {
	if w.Start != nil && t < *w.Start {
		return false
	}
	if w.End != nil && t > *w.End {
		return false
	}
	return true
}

// ConsecutiveRuns finds every run of hours bookable slots whose start times
// are exactly 60 minutes apart. Gaps of any other length, including
// overlapping starts, break a run. hours of 1 degenerates to one run per
// bookable slot inside the window. Runs are returned in ascending order of
// their first slot's start time.
func ConsecutiveRuns(live []model.Slot, hours int, w Window) [][]model.Slot {
	if hours < 1 {
		return nil
	}

	eligible := make([]model.Slot, 0, len(live))
	for _, s := range Bookable(live) {
		if w.contains(s.Time) {
			eligible = append(eligible, s)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].Time < eligible[j].Time })

	// Single-hour runs keep every slot, including several at the same start
	// time (one per sub-location is a normal listing shape).
	if hours == 1 {
		runs := make([][]model.Slot, 0, len(eligible))
		for _, s := range eligible {
			runs = append(runs, []model.Slot{s})
		}
		return runs
	}

	// Longer runs keep one slot per start time; a duplicate start cannot
	// extend a run.
	dedup := eligible[:0]
	for _, s := range eligible {
		if len(dedup) > 0 && dedup[len(dedup)-1].Time == s.Time {
			continue
		}
		dedup = append(dedup, s)
	}

	var runs [][]model.Slot
	for i := 0; i+hours <= len(dedup); i++ {
		ok := true
		for j := 1; j < hours; j++ {
			if dedup[i+j].Time.MinutesAfter(dedup[i+j-1].Time) != 60 {
				ok = false
				break
			}
		}
		if ok {
			run := make([]model.Slot, hours)
			copy(run, dedup[i:i+hours])
			runs = append(runs, run)
		}
	}
	return runs
}
