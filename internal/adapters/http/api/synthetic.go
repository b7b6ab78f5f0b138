package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/okian/spotcheck/internal/domain/model"
	"github.com/okian/spotcheck/pkg/logger"
)

// SyntheticCreator issues synthetic scraping tasks.
type SyntheticCreator interface {
	CreateSyntheticTask(ctx context.Context) (model.SyntheticTask, error)
}

type syntheticResponse struct {
	Status string              `json:"status"`
	Task   model.SyntheticTask `json:"task"`
}

// SyntheticHandler handles POST /create-synthetic-task.
type SyntheticHandler struct {
	creator SyntheticCreator
	logger  logger.Logger
	now     func() time.Time
}

// NewSyntheticHandler creates a new synthetic task handler.
func NewSyntheticHandler(creator SyntheticCreator, l logger.Logger) *SyntheticHandler {
	return &SyntheticHandler{creator: creator, logger: l, now: time.Now}
}

// HandleCreate creates one synthetic task.
func (h *SyntheticHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	start := h.now()
	task, err := h.creator.CreateSyntheticTask(r.Context())
	if err == nil {
		writeJSON(w, http.StatusOK, syntheticResponse{Status: "success", Task: task})
		return
	}

	if errors.Is(err, model.ErrSyntheticUnavailable) {
		h.logger.Error(r.Context(), "APIFY_TOKEN not configured")
		writeJSON(w, http.StatusInternalServerError, failure{
			Status:  statusLabelInternal,
			Error:   "Configuration error",
			Message: "APIFY_TOKEN not configured",
		})
		return
	}

	h.logger.Error(r.Context(), "error creating synthetic task", logger.Error(err))
	total := h.now().Sub(start).Seconds()
	writeJSON(w, http.StatusInternalServerError, failure{
		Status:    statusLabelInternal,
		Error:     "Failed to create synthetic task",
		Message:   err.Error(),
		TotalTime: &total,
		Timestamp: model.Timestamp(h.now()),
	})
}
