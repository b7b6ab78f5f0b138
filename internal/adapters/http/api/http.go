// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/spotcheck/internal/domain/model"
	"github.com/okian/spotcheck/pkg/logger"
	"github.com/okian/spotcheck/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Default server configuration constants.
const (
	defaultMaxBodyBytes = 100 << 20
)

// Route paths.
const (
	PathScore     = "/score-responses"
	PathSynthetic = "/create-synthetic-task"
	PathHealth    = "/health"
	PathStats     = "/stats"
	PathMetrics   = "/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Score runs the scoring pipeline for one cohort.
	Score(ctx context.Context, req model.ScoreRequest) (model.ScoreResponse, error)

	// CreateSyntheticTask picks a place for miners to scrape.
	CreateSyntheticTask(ctx context.Context) (model.SyntheticTask, error)

	// SynapseParams returns the parameters advertised to miners.
	SynapseParams() model.SynapseParams

	StatsProvider
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLocalhostOnly rejects non-loopback clients on every route.
func WithLocalhostOnly(enabled bool) Option {
	return func(s *Server) { s.localhostOnly = enabled }
}

// WithMaxBodyBytes caps request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the validator API.
type Server struct {
	localhostOnly bool
	maxBodyBytes  int64
	logger        logger.Logger

	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	scoreHandler     *ScoreHandler
	syntheticHandler *SyntheticHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}

	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(deps)
	s.scoreHandler = NewScoreHandler(deps, s.maxBodyBytes, s.logger)
	s.syntheticHandler = NewSyntheticHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.Handle(PathScore, s.wrap(s.scoreHandler.HandleScore, "score"))
	mux.Handle(PathSynthetic, s.wrap(s.syntheticHandler.HandleCreate, "synthetic"))
	mux.Handle(PathHealth, s.wrap(s.healthHandler.HandleHealth, "health"))
	mux.Handle(PathStats, s.wrap(s.statsHandler.HandleStats, "stats"))
	mux.Handle(PathMetrics, s.wrap(
		promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP, "metrics"))
}

// wrap applies the middleware chain. Blocked requests still get a request
// id and show up in the HTTP metrics.
func (s *Server) wrap(h http.HandlerFunc, endpoint string) http.Handler {
	var next http.Handler = h
	if s.localhostOnly {
		next = LocalhostOnly(next, s.logger)
	}
	return RequestID(MetricsMiddleware(next.ServeHTTP, endpoint))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
