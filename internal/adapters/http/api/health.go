package api

import (
	"net/http"

	"github.com/okian/spotcheck/internal/domain/model"
)

// SynapseParamsProvider exposes the synapse parameters handed to miners.
type SynapseParamsProvider interface {
	SynapseParams() model.SynapseParams
}

type healthConfig struct {
	GoogleReviewsSynapseParams model.SynapseParams `json:"google_reviews_synapse_params"`
}

type healthResponse struct {
	Status    string       `json:"status"`
	Node      string       `json:"node"`
	Endpoints []string     `json:"endpoints"`
	Config    healthConfig `json:"config"`
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	params SynapseParamsProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(params SynapseParamsProvider) *HealthHandler {
	return &HealthHandler{params: params}
}

// HandleHealth handles GET /health requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Node:      "validator",
		Endpoints: []string{PathSynthetic, PathScore, PathHealth},
		Config: healthConfig{
			GoogleReviewsSynapseParams: h.params.SynapseParams(),
		},
	})
}
