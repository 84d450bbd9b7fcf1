package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bobarin/dramacast/internal/models"
)

// StatusSource exposes the worker's live state.
type StatusSource interface {
	Snapshot() models.WorkerStatus
}

// QueueReader lists the sheet rows.
type QueueReader interface {
	Rows(ctx context.Context) ([]models.Row, error)
}

// HistoryReader lists recorded row outcomes.
type HistoryReader interface {
	RecentOutcomes(ctx context.Context, limit int) ([]models.Outcome, error)
}

type Handler struct {
	worker  StatusSource
	queue   QueueReader
	history HistoryReader
	wake    func() bool
}

// NewHandler wires the API surface. wake requests an immediate sweep and
// reports whether the daemon accepted it.
func NewHandler(worker StatusSource, queue QueueReader, history HistoryReader, wake func() bool) *Handler {
	return &Handler{
		worker:  worker,
		queue:   queue,
		history: history,
		wake:    wake,
	}
}

// GetStatus handles GET /v1/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.worker.Snapshot())
}

// GetQueue handles GET /v1/queue
// Returns the current sheet snapshot plus a count of workable rows.
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	rows, err := h.queue.Rows(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, "Failed to read the queue sheet")
		return
	}

	pending := 0
	for _, row := range rows {
		if models.IsPending(row.Status) {
			pending++
		}
	}

	respondJSON(w, http.StatusOK, models.QueueResponse{Rows: rows, Pending: pending})
}

// GetHistory handles GET /v1/history
// Query params:
//   - limit: max outcomes returned (default 20, max 100)
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		if parsed > 100 {
			parsed = 100
		}
		limit = parsed
	}

	outcomes, err := h.history.RecentOutcomes(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read history")
		return
	}

	respondJSON(w, http.StatusOK, models.HistoryResponse{Outcomes: outcomes})
}

// TriggerRun handles POST /v1/run
// Wakes the poll loop for an immediate sweep instead of waiting out the
// interval. A sweep already queued or running is reported as a conflict.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if h.wake == nil {
		respondError(w, http.StatusServiceUnavailable, "Run trigger not available")
		return
	}
	if !h.wake() {
		respondError(w, http.StatusConflict, "A sweep is already queued or running")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "run triggered"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
