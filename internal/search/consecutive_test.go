package search

import (
	"testing"

	"slotsniper/internal/model"
)

func tod(hour, minute int) model.TimeOfDay { return model.NewTimeOfDay(hour, minute) }

func starts(runs [][]model.Slot) []model.TimeOfDay {
	out := make([]model.TimeOfDay, 0, len(runs))
	for _, r := range runs {
		out = append(out, r[0].Time)
	}
	return out
}

func TestConsecutiveRunsStrictHourGap(t *testing.T) {
	// 09:00, 10:00, 11:30, 12:30. Only 09:00-10:00 forms a two-hour run;
	// the 90 minute gap breaks the chain even though 11:30-12:30 is an hour.
	live := []model.Slot{
		slotAt(9, true), slotAt(10, true),
		{Location: "X", Date: testDate, Time: tod(11, 30), Available: true},
		{Location: "X", Date: testDate, Time: tod(12, 30), Available: true},
	}

	runs := ConsecutiveRuns(live, 2, Window{})
	got := starts(runs)
	want := []model.TimeOfDay{tod(9, 0), tod(11, 30)}
	if len(got) != len(want) {
		t.Fatalf("run starts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("run starts = %v, want %v", got, want)
		}
	}
}

func TestConsecutiveRunsOverlapping(t *testing.T) {
	live := []model.Slot{slotAt(9, true), slotAt(10, true), slotAt(11, true)}

	runs := ConsecutiveRuns(live, 2, Window{})
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2 overlapping runs", len(runs))
	}
	if runs[0][0].Time != tod(9, 0) || runs[1][0].Time != tod(10, 0) {
		t.Fatalf("run starts = %v", starts(runs))
	}
}

func TestConsecutiveRunsSkipsUnbookable(t *testing.T) {
	mid := slotAt(10, true)
	mid.MarkedFull = true
	live := []model.Slot{slotAt(9, true), mid, slotAt(11, true)}

	if runs := ConsecutiveRuns(live, 2, Window{}); len(runs) != 0 {
		t.Fatalf("got %d runs, want none across a full slot", len(runs))
	}
}

func TestConsecutiveRunsWindow(t *testing.T) {
	live := []model.Slot{slotAt(8, true), slotAt(9, true), slotAt(10, true), slotAt(11, true)}
	start, end := tod(9, 0), tod(10, 0)

	runs := ConsecutiveRuns(live, 2, Window{Start: &start, End: &end})
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want exactly one inside the window", len(runs))
	}
	if runs[0][0].Time != tod(9, 0) || runs[0][1].Time != tod(10, 0) {
		t.Fatalf("run = %v", starts(runs))
	}
}

func TestConsecutiveRunsSingleHour(t *testing.T) {
	live := []model.Slot{slotAt(9, true), slotAt(14, true)}

	runs := ConsecutiveRuns(live, 1, Window{})
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want one per bookable slot", len(runs))
	}
}

func TestConsecutiveRunsSingleHourKeepsDuplicateStarts(t *testing.T) {
	court1 := slotAt(9, true)
	court1.SubLocation = "court-1"
	court2 := slotAt(9, true)
	court2.SubLocation = "court-2"
	live := []model.Slot{court1, court2}

	runs := ConsecutiveRuns(live, 1, Window{})
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2 singleton runs (one per bookable slot)", len(runs))
	}
	if runs[0][0].SubLocation != "court-1" || runs[1][0].SubLocation != "court-2" {
		t.Fatalf("singleton order not preserved: %q, %q",
			runs[0][0].SubLocation, runs[1][0].SubLocation)
	}
}

func TestConsecutiveRunsDuplicateStartTimes(t *testing.T) {
	dup := slotAt(9, true)
	dup.SubLocation = "court-2"
	live := []model.Slot{slotAt(9, true), dup, slotAt(10, true)}

	runs := ConsecutiveRuns(live, 2, Window{})
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want duplicates collapsed to one", len(runs))
	}
}

func TestConsecutiveRunsUnsortedInput(t *testing.T) {
	live := []model.Slot{slotAt(11, true), slotAt(9, true), slotAt(10, true)}

	runs := ConsecutiveRuns(live, 3, Window{})
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1 from unsorted input", len(runs))
	}
}
