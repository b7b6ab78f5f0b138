package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/okian/spotcheck/internal/domain/model"
	"github.com/okian/spotcheck/pkg/logger"
)

// Scorer runs the scoring pipeline.
type Scorer interface {
	Score(ctx context.Context, req model.ScoreRequest) (model.ScoreResponse, error)
}

// ScoreHandler handles POST /score-responses.
type ScoreHandler struct {
	scorer       Scorer
	validate     *validator.Validate
	maxBodyBytes int64
	logger       logger.Logger
	now          func() time.Time
}

// NewScoreHandler creates a new scoring handler.
func NewScoreHandler(scorer Scorer, maxBodyBytes int64, l logger.Logger) *ScoreHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &ScoreHandler{
		scorer:       scorer,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		maxBodyBytes: maxBodyBytes,
		logger:       l,
		now:          time.Now,
	}
}

// HandleScore decodes a cohort, scores it, and writes the summary.
func (h *ScoreHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	req, err := h.decode(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, failure{
				Status:  statusLabelBadRequest,
				Error:   "Payload too large",
				Message: err.Error(),
			})
			return
		}
		h.logger.Warn(r.Context(), "rejecting score request", logger.Error(err))
		writeJSON(w, http.StatusBadRequest, invalidScoreRequest())
		return
	}

	resp, err := h.scorer.Score(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, model.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, invalidScoreRequest())
	default:
		writeJSON(w, http.StatusInternalServerError, failure{
			Status:    statusLabelInternal,
			Error:     "Failed to score responses",
			Message:   err.Error(),
			Timestamp: model.Timestamp(h.now()),
		})
	}
}

func (h *ScoreHandler) decode(w http.ResponseWriter, r *http.Request) (model.ScoreRequest, error) {
	var req model.ScoreRequest
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	defer func() { _ = body.Close() }()

	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return model.ScoreRequest{}, WrapKind("decode score request", ErrBadRequest, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return model.ScoreRequest{}, WrapKind("validate score request", ErrBadRequest, err)
	}
	return req, nil
}
