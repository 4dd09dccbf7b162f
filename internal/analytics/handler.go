package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// SnapshotLister reads persisted stats. The Postgres store satisfies it.
type SnapshotLister interface {
	ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error)
}

// Snapshot is a persisted copy of AggregatedStats.
type Snapshot struct {
	CapturedAt time.Time       `json:"captured_at"`
	Stats      AggregatedStats `json:"stats"`
}

const (
	defaultSnapshotLimit = 20
	maxSnapshotLimit     = 500
)

type Handler struct {
	aggregator *Aggregator
	snapshots  SnapshotLister
	logger     *slog.Logger
}

// NewHandler serves aggregator stats. snapshots may be nil when no store is
// configured.
func NewHandler(aggregator *Aggregator, snapshots SnapshotLister) *Handler {
	return &Handler{
		aggregator: aggregator,
		snapshots:  snapshots,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.aggregator.Stats())
}

func (h *Handler) Snapshots(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "snapshot store is disabled"})
		return
	}
	limit := defaultSnapshotLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(parsed, maxSnapshotLimit)
	}
	snaps, err := h.snapshots.ListSnapshots(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list snapshots", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list snapshots"})
		return
	}
	if snaps == nil {
		snaps = []Snapshot{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"snapshots": snaps, "count": len(snaps)})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
