package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"slotsniper/internal/monitor"
)

// MonitorControl is the control surface of the availability monitor.
// *monitor.Monitor satisfies it.
type MonitorControl interface {
	Start(ctx context.Context, targets []monitor.Target)
	Stop()
	Running() bool
}

type MonitorHandler struct {
	monitor MonitorControl
	logger  *slog.Logger
}

func NewMonitorHandler(m MonitorControl, logger *slog.Logger) *MonitorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MonitorHandler{monitor: m, logger: logger}
}

type startMonitorRequest struct {
	Targets []struct {
		Location string `json:"location"`
		Date     string `json:"date"`
	} `json:"targets"`
}

// Start begins watching the requested targets. Starting a running monitor is
// a no-op reported as already_running.
func (h *MonitorHandler) Start(w http.ResponseWriter, r *http.Request) {
	var body startMonitorRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if len(body.Targets) == 0 {
		http.Error(w, "at least one target is required", http.StatusBadRequest)
		return
	}

	targets := make([]monitor.Target, len(body.Targets))
	for i, t := range body.Targets {
		if t.Location == "" {
			http.Error(w, "target location is required", http.StatusBadRequest)
			return
		}
		date, err := parseDate(t.Date)
		if err != nil {
			http.Error(w, "invalid target date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		targets[i] = monitor.Target{Location: t.Location, Date: date}
	}

	if h.monitor.Running() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already_running"})
		return
	}
	// Detached context: the monitor outlives this request.
	h.monitor.Start(context.Background(), targets)
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (h *MonitorHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.monitor.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (h *MonitorHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"running": h.monitor.Running()})
}
