// Package handlers exposes the HTTP bridge: booking runs, cache queries,
// monitor control, snipe jobs, and stored accounts.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"slotsniper/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(model.DateFormat, raw)
}

// slotView is the JSON shape of one slot in bridge responses.
type slotView struct {
	Time              string `json:"time"`
	SubLocation       string `json:"sub_location,omitempty"`
	Available         bool   `json:"available"`
	MarkedFull        bool   `json:"marked_full"`
	RemainingCapacity *int   `json:"remaining_capacity,omitempty"`
	Bookable          bool   `json:"bookable"`
}

func slotViews(slots []model.Slot) []slotView {
	out := make([]slotView, len(slots))
	for i, s := range slots {
		out[i] = slotView{
			Time:              s.Time.String(),
			SubLocation:       s.SubLocation,
			Available:         s.Available,
			MarkedFull:        s.MarkedFull,
			RemainingCapacity: s.RemainingCapacity,
			Bookable:          s.Bookable(),
		}
	}
	return out
}
