package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"slotsniper/internal/model"
	"slotsniper/internal/storage"
)

// Executor runs one booking request to a terminal outcome.
type Executor interface {
	Execute(ctx context.Context, req model.BookingRequest) model.BookingOutcome
}

// RecordStore is the booking-record surface the bridge reads and cancels
// through. *storage.Records satisfies it.
type RecordStore interface {
	Get(ctx context.Context, id int64) (model.BookingRecord, error)
	List(ctx context.Context, status model.RecordStatus, limit int) ([]model.BookingRecord, error)
	Cancel(ctx context.Context, id int64) error
	Stats(ctx context.Context) (model.RecordStats, error)
	Events(ctx context.Context, recordID int64) ([]model.RecordEvent, error)
}

// run tracks one in-flight or finished orchestration started over HTTP.
type run struct {
	mu         sync.Mutex
	id         string
	cancel     context.CancelFunc
	startedAt  time.Time
	finishedAt time.Time
	outcome    *model.BookingOutcome
}

// BookingHandler starts orchestration runs and serves their durable records.
// Runs execute in the background; the registry keeps terminal outcomes
// available for polling until process restart.
type BookingHandler struct {
	exec    Executor
	records RecordStore // optional
	logger  *slog.Logger

	mu   sync.Mutex
	runs map[string]*run
}

func NewBookingHandler(exec Executor, records RecordStore, logger *slog.Logger) *BookingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookingHandler{
		exec:    exec,
		records: records,
		logger:  logger,
		runs:    map[string]*run{},
	}
}

type startRunRequest struct {
	Date             string   `json:"date"`
	DesiredTimes     []string `json:"desired_times"`
	Location         string   `json:"location"`
	SubLocation      string   `json:"sub_location"`
	RetryIntervalSec int      `json:"retry_interval_seconds"`
	ConsecutiveHours int      `json:"consecutive_hours"`
	MaxRunSec        int      `json:"max_run_seconds"`
	AccountID        int64    `json:"account_id"`
}

type startRunResponse struct {
	RunID string `json:"run_id"`
}

type runStatusResponse struct {
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`

	Outcome         string `json:"outcome,omitempty"`
	BookedTime      string `json:"booked_time,omitempty"`
	ConfirmationRef string `json:"confirmation_ref,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// Start launches a run in the background and returns its id. The run keeps
// going after the HTTP request ends; clients poll RunStatus.
func (h *BookingHandler) Start(w http.ResponseWriter, r *http.Request) {
	var body startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req, err := h.buildRequest(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	runCtx, cancel := context.WithCancel(context.Background())
	st := &run{
		id:        uuid.NewString(),
		cancel:    cancel,
		startedAt: time.Now().UTC(),
	}
	h.mu.Lock()
	h.runs[st.id] = st
	h.mu.Unlock()

	go func() {
		defer cancel()
		outcome := h.exec.Execute(runCtx, req)
		st.mu.Lock()
		st.outcome = &outcome
		st.finishedAt = time.Now().UTC()
		st.mu.Unlock()
	}()

	h.logger.Info("booking run started over http",
		"run_id", st.id,
		"location", req.Location,
		"date", req.Date.Format(model.DateFormat))
	writeJSON(w, http.StatusAccepted, startRunResponse{RunID: st.id})
}

func (h *BookingHandler) buildRequest(body startRunRequest) (model.BookingRequest, error) {
	date, err := parseDate(body.Date)
	if err != nil {
		return model.BookingRequest{}, errors.New("invalid date, want YYYY-MM-DD")
	}
	if len(body.DesiredTimes) == 0 {
		return model.BookingRequest{}, errors.New("desired_times is required")
	}
	times := make([]model.TimeOfDay, len(body.DesiredTimes))
	for i, raw := range body.DesiredTimes {
		t, err := model.ParseTimeOfDay(raw)
		if err != nil {
			return model.BookingRequest{}, errors.New("invalid desired time, want HH:MM")
		}
		times[i] = t
	}

	interval := 30 * time.Second
	if body.RetryIntervalSec > 0 {
		interval = time.Duration(body.RetryIntervalSec) * time.Second
	}
	req := model.BookingRequest{
		AccountID:        body.AccountID,
		Date:             date,
		DesiredTimes:     times,
		Location:         body.Location,
		SubLocation:      body.SubLocation,
		RetryInterval:    interval,
		ConsecutiveHours: body.ConsecutiveHours,
		MaxRunDuration:   time.Duration(body.MaxRunSec) * time.Second,
	}
	if err := req.Validate(); err != nil {
		return model.BookingRequest{}, err
	}
	return req, nil
}

// RunStatus reports an in-flight or finished run.
func (h *BookingHandler) RunStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	st, ok := h.runs[r.PathValue("id")]
	h.mu.Unlock()
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	resp := runStatusResponse{
		RunID:     st.id,
		Status:    "running",
		StartedAt: st.startedAt.Format(time.RFC3339),
	}
	if st.outcome != nil {
		resp.Status = "finished"
		resp.FinishedAt = st.finishedAt.Format(time.RFC3339)
		resp.Outcome = string(st.outcome.Kind)
		resp.Reason = st.outcome.Reason
		if st.outcome.Slot != nil {
			resp.BookedTime = st.outcome.Slot.Time.String()
			resp.ConfirmationRef = st.outcome.ConfirmationRef
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Cancel stops a run by run id, or cancels a pending durable record when the
// id is numeric.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if recordID, err := strconv.ParseInt(id, 10, 64); err == nil {
		if h.records == nil {
			http.Error(w, "records not configured", http.StatusNotFound)
			return
		}
		switch err := h.records.Cancel(r.Context(), recordID); {
		case errors.Is(err, storage.ErrNotFound):
			http.Error(w, "no pending record with that id", http.StatusNotFound)
		case err != nil:
			http.Error(w, "cancel failed", http.StatusInternalServerError)
		default:
			writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
		}
		return
	}

	h.mu.Lock()
	st, ok := h.runs[id]
	h.mu.Unlock()
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	st.cancel()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

type recordView struct {
	ID           int64  `json:"id"`
	AccountID    int64  `json:"account_id,omitempty"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Location     string `json:"location"`
	SubLocation  string `json:"sub_location,omitempty"`
	Status       string `json:"status"`
	Reference    string `json:"reference,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func recordToView(rec model.BookingRecord) recordView {
	return recordView{
		ID:           rec.ID,
		AccountID:    rec.AccountID,
		Date:         rec.Date.Format(model.DateFormat),
		Time:         rec.Time.String(),
		Location:     rec.Location,
		SubLocation:  rec.SubLocation,
		Status:       string(rec.Status),
		Reference:    rec.Reference,
		ErrorMessage: rec.ErrorMessage,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    rec.UpdatedAt.Format(time.RFC3339),
	}
}

// List serves durable booking records, newest first.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.records == nil {
		http.Error(w, "records not configured", http.StatusNotFound)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	status := model.RecordStatus(r.URL.Query().Get("status"))

	records, err := h.records.List(r.Context(), status, limit)
	if err != nil {
		h.logger.Error("listing booking records failed", "error", err)
		http.Error(w, "list failed", http.StatusInternalServerError)
		return
	}
	views := make([]recordView, len(records))
	for i, rec := range records {
		views[i] = recordToView(rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": views})
}

// Get serves one record with its audit trail.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.records == nil {
		http.Error(w, "records not configured", http.StatusNotFound)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid record id", http.StatusBadRequest)
		return
	}

	rec, err := h.records.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}

	events, err := h.records.Events(r.Context(), id)
	if err != nil {
		h.logger.Warn("loading record events failed", "record_id", id, "error", err)
	}
	type eventView struct {
		EventType string `json:"event_type"`
		Message   string `json:"message,omitempty"`
		CreatedAt string `json:"created_at"`
	}
	eventViews := make([]eventView, len(events))
	for i, ev := range events {
		eventViews[i] = eventView{
			EventType: ev.EventType,
			Message:   ev.Message,
			CreatedAt: ev.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"record": recordToView(rec),
		"events": eventViews,
	})
}

// Stats serves aggregate outcome counts.
func (h *BookingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.records == nil {
		http.Error(w, "records not configured", http.StatusNotFound)
		return
	}
	stats, err := h.records.Stats(r.Context())
	if err != nil {
		http.Error(w, "stats failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
