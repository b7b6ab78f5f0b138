package api

import (
	"errors"
	"fmt"

	"github.com/okian/spotcheck/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// Response status labels.
const (
	statusLabelBadRequest = "Bad Request"
	statusLabelInternal   = "Internal Server Error"
	statusLabelBlocked    = "Blocked Request"
)

// WrapKind tags err with op and a sentinel kind so callers can use errors.Is.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// NewKind returns an error of the given kind for op.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// failure is the error body shape shared by every route.
type failure struct {
	Status    string   `json:"status"`
	Error     string   `json:"error"`
	Message   string   `json:"message,omitempty"`
	TotalTime *float64 `json:"totalTime,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
}

func badRequest(message string) failure {
	return failure{Status: statusLabelBadRequest, Error: "Invalid request", Message: message}
}

func invalidScoreRequest() failure {
	return badRequest(model.ErrInvalidRequest.Error())
}
