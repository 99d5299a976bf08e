package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/siglab-monitor/internal/display"
	"github.com/angeloszaimis/siglab-monitor/internal/snapshot"
)

// SnapshotSource is satisfied by *snapshot.Store.
type SnapshotSource interface {
	Current() (snapshot.Snapshot, bool)
}

type APIHandler struct {
	logger     *slog.Logger
	source     SnapshotSource
	staleAfter time.Duration
	now        func() time.Time
}

type statusResponse struct {
	Status string `json:"status"`
}

type dashboardResponse struct {
	display.ViewModel
	Stale bool `json:"stale"`
}

// Snapshot writes the latest snapshot, or 503 while the first cycle is
// still running.
func (h *APIHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.source.Current()
	if !ok {
		w.Header().Set("Retry-After", "1")
		h.writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "warming_up"})
		return
	}

	h.writeJSON(w, http.StatusOK, snap)
}

// Dashboard writes the view-model of the latest snapshot with its staleness.
func (h *APIHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	snap, _ := h.source.Current()
	vm := display.ToViewModel(snap)

	h.writeJSON(w, http.StatusOK, dashboardResponse{
		ViewModel: vm,
		Stale:     vm.Stale(h.now(), h.staleAfter),
	})
}

// Health reports the monitor itself as up, using the backends' contract.
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("Failed to write response", slog.String("error", err.Error()))
	}
}

func NewAPIHandler(logger *slog.Logger, source SnapshotSource, staleAfter time.Duration) *APIHandler {
	return &APIHandler{
		logger:     logger,
		source:     source,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}
