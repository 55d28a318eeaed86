package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/justestif/go-sparkify-etl/internal/metrics"
)

const (
	defaultTopSongs = 10
	maxTopSongs     = 100
)

// Handlers contains the HTTP handlers.
type Handlers struct {
	store   Store
	metrics *metrics.Stored
	logger  *zap.Logger
	promh   http.Handler
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store Store, m *metrics.Stored, logger *zap.Logger) *Handlers {
	return &Handlers{
		store:   store,
		metrics: m,
		logger:  logger,
		promh:   promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}),
	}
}

// Health reports whether the database is reachable (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("Health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Stats returns row counts per table (GET /stats).
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("Failed to load stats", zap.Error(err))
		http.Error(w, "Failed to load stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// TopSongs returns the most played songs (GET /top-songs?limit=N).
func (h *Handlers) TopSongs(w http.ResponseWriter, r *http.Request) {
	limit := defaultTopSongs
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxTopSongs {
			http.Error(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = n
	}

	songs, err := h.store.TopSongs(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to load top songs", zap.Error(err))
		http.Error(w, "Failed to load top songs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

// Metrics refreshes the stored-table gauges and serves the registry (GET /metrics).
func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Warn("Failed to refresh table gauges", zap.Error(err))
	} else {
		for _, tc := range stats.Tables {
			h.metrics.TableRows.WithLabelValues(tc.Table).Set(float64(tc.Rows))
		}
		h.metrics.UnresolvedPlays.Set(float64(stats.UnresolvedPlays))
	}
	h.promh.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
