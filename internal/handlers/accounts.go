package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"slotsniper/internal/storage"
)

// AccountStore is the stored-account surface the bridge drives.
// *storage.Accounts satisfies it. Secrets go in; they never come back out
// over HTTP.
type AccountStore interface {
	Create(ctx context.Context, name, identity, secret string) (int64, error)
	List(ctx context.Context) ([]storage.AccountInfo, error)
	Deactivate(ctx context.Context, id int64) error
}

type AccountHandler struct {
	store  AccountStore
	logger *slog.Logger
}

func NewAccountHandler(store AccountStore, logger *slog.Logger) *AccountHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountHandler{store: store, logger: logger}
}

type createAccountRequest struct {
	Name     string `json:"name"`
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	body.Identity = strings.TrimSpace(body.Identity)
	if body.Name == "" || body.Identity == "" || body.Secret == "" {
		http.Error(w, "name, identity and secret are required", http.StatusBadRequest)
		return
	}

	id, err := h.store.Create(r.Context(), body.Name, body.Identity, body.Secret)
	if err != nil {
		h.logger.Error("creating account failed", "error", err)
		http.Error(w, "create failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("listing accounts failed", "error", err)
		http.Error(w, "list failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid account id", http.StatusBadRequest)
		return
	}
	switch err := h.store.Deactivate(r.Context(), id); {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "no active account with that id", http.StatusNotFound)
	case err != nil:
		http.Error(w, "deactivate failed", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
	}
}
