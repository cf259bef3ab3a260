package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"slotsniper/internal/model"
	"slotsniper/internal/storage"
)

// SnipeStore is the snipe-job surface the bridge drives. *storage.Snipes
// satisfies it.
type SnipeStore interface {
	Create(ctx context.Context, job model.SnipeJob) (int64, error)
	Get(ctx context.Context, id int64) (model.SnipeJob, error)
	List(ctx context.Context, status model.SnipeStatus, limit int) ([]model.SnipeJob, error)
	Cancel(ctx context.Context, id int64) error
}

type SnipeHandler struct {
	store  SnipeStore
	logger *slog.Logger
}

func NewSnipeHandler(store SnipeStore, logger *slog.Logger) *SnipeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnipeHandler{store: store, logger: logger}
}

type createSnipeRequest struct {
	TargetDate         string `json:"target_date"`
	TargetTime         string `json:"target_time"`
	Location           string `json:"location"`
	SubLocation        string `json:"sub_location"`
	Priority           int    `json:"priority"`
	ScheduledExecution string `json:"scheduled_execution"` // RFC3339
	ConsecutiveHours   int    `json:"consecutive_hours"`
	WindowStart        string `json:"window_start"`
	WindowEnd          string `json:"window_end"`
	RetryIntervalSec   int    `json:"retry_interval_seconds"`
	MaxAttempts        int    `json:"max_attempts"`
}

func (h *SnipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createSnipeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if body.Location == "" {
		http.Error(w, "location is required", http.StatusBadRequest)
		return
	}

	targetDate, err := parseDate(body.TargetDate)
	if err != nil {
		http.Error(w, "invalid target_date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	targetTime, err := model.ParseTimeOfDay(body.TargetTime)
	if err != nil {
		http.Error(w, "invalid target_time, want HH:MM", http.StatusBadRequest)
		return
	}
	scheduled, err := time.Parse(time.RFC3339, body.ScheduledExecution)
	if err != nil {
		http.Error(w, "invalid scheduled_execution, want RFC3339", http.StatusBadRequest)
		return
	}

	job := model.SnipeJob{
		TargetDate:         targetDate,
		TargetTime:         targetTime,
		Location:           body.Location,
		SubLocation:        body.SubLocation,
		Priority:           body.Priority,
		ScheduledExecution: scheduled,
		ConsecutiveHours:   body.ConsecutiveHours,
		MaxAttempts:        body.MaxAttempts,
	}
	if body.RetryIntervalSec > 0 {
		job.RetryInterval = time.Duration(body.RetryIntervalSec) * time.Second
	}
	if body.WindowStart != "" {
		t, err := model.ParseTimeOfDay(body.WindowStart)
		if err != nil {
			http.Error(w, "invalid window_start, want HH:MM", http.StatusBadRequest)
			return
		}
		job.WindowStart = &t
	}
	if body.WindowEnd != "" {
		t, err := model.ParseTimeOfDay(body.WindowEnd)
		if err != nil {
			http.Error(w, "invalid window_end, want HH:MM", http.StatusBadRequest)
			return
		}
		job.WindowEnd = &t
	}

	id, err := h.store.Create(r.Context(), job)
	if err != nil {
		h.logger.Error("creating snipe job failed", "error", err)
		http.Error(w, "create failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type snipeView struct {
	ID                 int64  `json:"id"`
	TargetDate         string `json:"target_date"`
	TargetTime         string `json:"target_time"`
	Location           string `json:"location"`
	SubLocation        string `json:"sub_location,omitempty"`
	Priority           int    `json:"priority"`
	ScheduledExecution string `json:"scheduled_execution"`
	Status             string `json:"status"`
	ConsecutiveHours   int    `json:"consecutive_hours,omitempty"`
	WindowStart        string `json:"window_start,omitempty"`
	WindowEnd          string `json:"window_end,omitempty"`
	Attempts           int    `json:"attempts"`
	MaxAttempts        int    `json:"max_attempts"`
	Result             string `json:"result,omitempty"`
	ExecutedAt         string `json:"executed_at,omitempty"`
}

func snipeToView(j model.SnipeJob) snipeView {
	v := snipeView{
		ID:                 j.ID,
		TargetDate:         j.TargetDate.Format(model.DateFormat),
		TargetTime:         j.TargetTime.String(),
		Location:           j.Location,
		SubLocation:        j.SubLocation,
		Priority:           j.Priority,
		ScheduledExecution: j.ScheduledExecution.Format(time.RFC3339),
		Status:             string(j.Status),
		ConsecutiveHours:   j.ConsecutiveHours,
		Attempts:           j.Attempts,
		MaxAttempts:        j.MaxAttempts,
		Result:             j.Result,
	}
	if j.WindowStart != nil {
		v.WindowStart = j.WindowStart.String()
	}
	if j.WindowEnd != nil {
		v.WindowEnd = j.WindowEnd.String()
	}
	if j.ExecutedAt != nil {
		v.ExecutedAt = j.ExecutedAt.Format(time.RFC3339)
	}
	return v
}

func (h *SnipeHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	status := model.SnipeStatus(r.URL.Query().Get("status"))

	jobs, err := h.store.List(r.Context(), status, limit)
	if err != nil {
		h.logger.Error("listing snipe jobs failed", "error", err)
		http.Error(w, "list failed", http.StatusInternalServerError)
		return
	}
	views := make([]snipeView, len(jobs))
	for i, j := range jobs {
		views[i] = snipeToView(j)
	}
	writeJSON(w, http.StatusOK, map[string]any{"snipes": views})
}

func (h *SnipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid snipe id", http.StatusBadRequest)
		return
	}
	job, err := h.store.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "snipe job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snipeToView(job))
}

func (h *SnipeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid snipe id", http.StatusBadRequest)
		return
	}
	switch err := h.store.Cancel(r.Context(), id); {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "no scheduled snipe job with that id", http.StatusNotFound)
	case err != nil:
		http.Error(w, "cancel failed", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
	}
}
