package api

import (
	"net/http"
	"time"

	"github.com/okian/spotcheck/internal/domain/model"
)

// StatsProvider reports pipeline counters.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	provider StatsProvider
	now      func() time.Time
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider, now: time.Now}
}

// HandleStats writes the provider's counters stamped with the current time.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	snapshot := make(map[string]interface{})
	for k, v := range h.provider.GetStats() {
		snapshot[k] = v
	}
	snapshot["timestamp"] = model.Timestamp(h.now())
	writeJSON(w, http.StatusOK, snapshot)
}
