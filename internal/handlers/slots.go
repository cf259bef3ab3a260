package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"slotsniper/internal/cache"
	"slotsniper/internal/model"
	"slotsniper/internal/search"
)

// SlotsHandler serves availability from the cache. It never probes the
// remote; the monitor keeps the cache warm.
type SlotsHandler struct {
	cache  *cache.Availability
	logger *slog.Logger
}

func NewSlotsHandler(avail *cache.Availability, logger *slog.Logger) *SlotsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlotsHandler{cache: avail, logger: logger}
}

func (h *SlotsHandler) query(w http.ResponseWriter, r *http.Request) (string, time.Time, bool) {
	location := r.URL.Query().Get("location")
	if location == "" {
		http.Error(w, "location is required", http.StatusBadRequest)
		return "", time.Time{}, false
	}
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return "", time.Time{}, false
	}
	return location, date, true
}

// Get serves the cached snapshot for (location, date).
func (h *SlotsHandler) Get(w http.ResponseWriter, r *http.Request) {
	location, date, ok := h.query(w, r)
	if !ok {
		return
	}

	view, ok := h.cache.Get(r.Context(), location, date)
	if !ok {
		http.Error(w, "no snapshot for that location and date", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"location":    location,
		"date":        date.Format(model.DateFormat),
		"observed_at": view.ObservedAt.Format(time.RFC3339),
		"stale":       view.Stale,
		"slots":       slotViews(view.Slots),
	})
}

// Consecutive serves runs of hourly slots from the cached snapshot.
func (h *SlotsHandler) Consecutive(w http.ResponseWriter, r *http.Request) {
	location, date, ok := h.query(w, r)
	if !ok {
		return
	}
	hours, err := strconv.Atoi(r.URL.Query().Get("hours"))
	if err != nil || hours < 1 {
		http.Error(w, "hours must be a positive integer", http.StatusBadRequest)
		return
	}

	var window search.Window
	if raw := r.URL.Query().Get("window_start"); raw != "" {
		t, err := model.ParseTimeOfDay(raw)
		if err != nil {
			http.Error(w, "invalid window_start, want HH:MM", http.StatusBadRequest)
			return
		}
		window.Start = &t
	}
	if raw := r.URL.Query().Get("window_end"); raw != "" {
		t, err := model.ParseTimeOfDay(raw)
		if err != nil {
			http.Error(w, "invalid window_end, want HH:MM", http.StatusBadRequest)
			return
		}
		window.End = &t
	}

	runs, view, ok := h.cache.ConsecutiveRuns(r.Context(), location, date, hours, window)
	if !ok {
		http.Error(w, "no snapshot for that location and date", http.StatusNotFound)
		return
	}

	type runView struct {
		Start string `json:"start"`
		End   string `json:"end"`
		Times []string `json:"times"`
	}
	runViews := make([]runView, len(runs))
	for i, run := range runs {
		times := make([]string, len(run))
		for j, s := range run {
			times[j] = s.Time.String()
		}
		// A run ending at 23:00 finishes at midnight; wrap instead of "24:00".
		end := (run[len(run)-1].Time + 60) % (24 * 60)
		runViews[i] = runView{
			Start: run[0].Time.String(),
			End:   end.String(),
			Times: times,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"location":    location,
		"date":        date.Format(model.DateFormat),
		"hours":       hours,
		"observed_at": view.ObservedAt.Format(time.RFC3339),
		"stale":       view.Stale,
		"runs":        runViews,
	})
}
