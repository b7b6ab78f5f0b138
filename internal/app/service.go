// Package service wires the scoring pipeline and digestion dispatch behind
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	digestqueue "github.com/okian/spotcheck/internal/adapters/mq/queue"
	workerpool "github.com/okian/spotcheck/internal/adapters/mq/worker"
	"github.com/okian/spotcheck/internal/domain/model"
	"github.com/okian/spotcheck/internal/domain/preprocess"
	"github.com/okian/spotcheck/internal/domain/scoring"
	"github.com/okian/spotcheck/internal/domain/spotcheck"
	"github.com/okian/spotcheck/internal/domain/synthetic"
	"github.com/okian/spotcheck/pkg/logger"
	"github.com/okian/spotcheck/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultSynapseTimeout = 120.0
	defaultQueueSize      = 1024
	statusSuccess         = "success"
)

var (
	// ErrNoVerifier is returned by Score when no spot-check collaborator is wired.
	ErrNoVerifier = errors.New("spot check verifier not configured")
	// ErrSyntheticUnavailable is returned when synthetic tasks cannot be created.
	ErrSyntheticUnavailable = model.ErrSyntheticUnavailable
)

// Service implements the API dependencies for the validator.
type Service struct {
	mu sync.RWMutex

	// Pipeline
	preprocessor *preprocess.Preprocessor
	checker      *spotcheck.Checker
	calculator   *scoring.Calculator
	creator      *synthetic.Creator

	// Digestion
	sender      workerpool.Sender
	digestQueue digestqueue.Queue
	workerPool  *workerpool.Pool
	dispatching sync.WaitGroup

	// Configuration
	workerCount    int
	queueSize      int
	synapseTimeout float64
	synapseParams  model.SynapseParams
	now            func() time.Time

	// State
	started bool

	scored          atomic.Int64
	failed          atomic.Int64
	minersScored    atomic.Int64
	digestsQueued   atomic.Int64
	digestsDropped  atomic.Int64
	syntheticIssued atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithPreprocessor sets the phase-one preprocessor.
func WithPreprocessor(p *preprocess.Preprocessor) Option {
	return func(s *Service) {
		if p != nil {
			s.preprocessor = p
		}
	}
}

// WithChecker sets the phase-two spot checker.
func WithChecker(c *spotcheck.Checker) Option {
	return func(s *Service) {
		if c != nil {
			s.checker = c
		}
	}
}

// WithCalculator sets the phase-three score calculator.
func WithCalculator(c *scoring.Calculator) Option {
	return func(s *Service) {
		if c != nil {
			s.calculator = c
		}
	}
}

// WithCreator enables synthetic task creation.
func WithCreator(c *synthetic.Creator) Option {
	return func(s *Service) {
		if c != nil {
			s.creator = c
		}
	}
}

// WithDigestSender enables digestion dispatch through a worker pool.
func WithDigestSender(sender workerpool.Sender) Option {
	return func(s *Service) {
		if sender != nil {
			s.sender = sender
		}
	}
}

// WithWorkerCount sets the number of digestion workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the digestion queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSynapseTimeout sets the timeout used when a request omits one.
func WithSynapseTimeout(seconds float64) Option {
	return func(s *Service) {
		if seconds > 0 {
			s.synapseTimeout = seconds
		}
	}
}

// WithSynapseParams sets the parameters advertised when no creator is wired.
func WithSynapseParams(p model.SynapseParams) Option {
	return func(s *Service) {
		s.synapseParams = p
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces the time source used for response timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU(),
		queueSize:      defaultQueueSize,
		synapseTimeout: defaultSynapseTimeout,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.preprocessor == nil {
		s.preprocessor = preprocess.New()
	}
	if s.calculator == nil {
		s.calculator = scoring.NewCalculator()
	}
	return s
}

// Start starts the digestion workers. Without a digest sender it is a no-op
// apart from marking the service started.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting validator service...")

	if s.sender != nil {
		q := digestqueue.NewInMemoryQueue(digestqueue.WithCapacity(s.queueSize))
		s.digestQueue = q
		s.workerPool = workerpool.NewPool(s.workerCount, q, s.sender)
		// Workers outlive the request that started them; they stop on Shutdown.
		s.workerPool.Start(context.WithoutCancel(ctx))
	}

	s.started = true
	s.logger.Info(ctx, "validator service started",
		logger.Bool("digestion", s.sender != nil),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("spotCheckCount", s.preprocessor.SpotCheckCount()),
	)
	return nil
}

// Shutdown stops accepting digestion jobs and drains the queue.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping validator service...")

	// Holding the write lock keeps Score from starting new dispatches.
	if err := s.waitDispatches(ctx); err != nil {
		s.logger.Warn(ctx, "digestion dispatch still running", logger.Error(err))
	}

	var err error
	if s.workerPool != nil {
		err = s.workerPool.Shutdown(ctx)
	}

	s.digestQueue = nil
	s.started = false
	s.logger.Info(ctx, "validator service stopped")
	return err
}

// Score runs the three scoring phases for one cohort and dispatches digestion.
func (s *Service) Score(ctx context.Context, req model.ScoreRequest) (model.ScoreResponse, error) {
	if req.FID == "" || req.Responses == nil {
		metrics.RecordScoringRequest("invalid")
		return model.ScoreResponse{}, model.ErrInvalidRequest
	}
	if s.checker == nil {
		metrics.RecordScoringRequest("failed")
		return model.ScoreResponse{}, ErrNoVerifier
	}

	synapseTimeout := s.synapseTimeout
	if req.SynapseTimeout != nil && *req.SynapseTimeout > 0 {
		synapseTimeout = *req.SynapseTimeout
	}

	start := time.Now()
	log := s.logger.With(logger.String("fid", req.FID))
	log.Info(ctx, "scoring responses",
		logger.Int("responses", len(req.Responses)),
		logger.Bool("responseTimes", len(req.ResponseTimes) > 0),
		logger.Float64("synapseTimeout", synapseTimeout),
		logger.Any("minerUIDs", req.MinerUIDs),
	)

	resp, err := s.score(ctx, req, synapseTimeout)
	metrics.RecordScoringDuration(time.Since(start))
	if err != nil {
		s.failed.Add(1)
		metrics.RecordScoringRequest("failed")
		metrics.RecordErrorByComponent("service", "scoring_error")
		log.Error(ctx, "error scoring responses", logger.Error(err))
		return model.ScoreResponse{}, err
	}

	s.scored.Add(1)
	s.minersScored.Add(int64(len(resp.DetailedResults)))
	metrics.RecordScoringRequest(statusSuccess)
	metrics.RecordCohortSize(len(req.Responses))
	for _, r := range resp.DetailedResults {
		verdict := "rejected"
		if r.PassedValidation {
			verdict = "passed"
		}
		metrics.RecordMinerScored(verdict, r.Score)
	}
	log.Info(ctx, "scoring complete",
		logger.Int("miners", resp.Statistics.Count),
		logger.Float64("mean", resp.Statistics.Mean),
		logger.Duration("took", time.Since(start)),
	)

	s.mu.RLock()
	if q := s.digestQueue; q != nil {
		s.dispatching.Add(1)
		go func() {
			defer s.dispatching.Done()
			s.dispatchDigestion(context.WithoutCancel(ctx), q, req.FID, req.Responses, req.MinerUIDs)
		}()
	}
	s.mu.RUnlock()
	return resp, nil
}

func (s *Service) score(ctx context.Context, req model.ScoreRequest, synapseTimeout float64) (model.ScoreResponse, error) {
	prepStart := time.Now()
	prepared, err := s.preprocessor.Prepare(ctx, req.FID, req.Responses, req.MinerUIDs)
	metrics.RecordPreprocessLatency(float64(time.Since(prepStart).Milliseconds()))
	if err != nil {
		return model.ScoreResponse{}, fmt.Errorf("phase 1: %w", err)
	}

	records, err := s.checker.Apply(ctx, req.FID, prepared.Records, prepared.Batches)
	if err != nil {
		return model.ScoreResponse{}, fmt.Errorf("phase 2: %w", err)
	}

	summary := s.calculator.Calculate(ctx, records, req.ResponseTimes, synapseTimeout)
	if err := ctx.Err(); err != nil {
		return model.ScoreResponse{}, fmt.Errorf("phase 3: %w", err)
	}

	scores := summary.Scores
	if scores == nil {
		scores = []float64{}
	}
	details := summary.FinalScores
	if details == nil {
		details = []model.ScoreResult{}
	}
	return model.ScoreResponse{
		Status: statusSuccess,
		FID:    req.FID,
		Scores: scores,
		Statistics: model.Statistics{
			Count: len(scores),
			Mean:  summary.MeanScore,
			Min:   summary.MinScore,
			Max:   summary.MaxScore,
		},
		Timestamp:       model.Timestamp(s.now()),
		DetailedResults: details,
	}, nil
}

// waitDispatches blocks until every in-flight dispatchDigestion returns.
func (s *Service) waitDispatches(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.dispatching.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatchDigestion queues each array submission's schema-valid reviews.
// It runs off the request goroutine and never fails the caller.
func (s *Service) dispatchDigestion(ctx context.Context, q digestqueue.Queue, fid string, responses []json.RawMessage, uids []model.MinerUID) {
	for i, raw := range responses {
		uid := model.ResolveUID(uids, i)
		reviews, ok := s.preprocessor.CleanSubmission(fid, raw)
		if !ok || len(reviews) == 0 {
			continue
		}
		job := model.DigestJob{
			DatasetType: model.DatasetGoogleMapsReviews,
			MinerUID:    uid,
			Reviews:     reviews,
		}
		if !q.Enqueue(ctx, job) {
			s.digestsDropped.Add(1)
			metrics.RecordDigestion("dropped")
			s.logger.Warn(ctx, "digestion queue full, dropping job",
				logger.String("minerUID", uid.String()),
				logger.Int("reviews", len(reviews)),
			)
			continue
		}
		s.digestsQueued.Add(1)
	}
}

// CreateSyntheticTask picks a place for miners to scrape.
func (s *Service) CreateSyntheticTask(ctx context.Context) (model.SyntheticTask, error) {
	if s.creator == nil {
		return model.SyntheticTask{}, ErrSyntheticUnavailable
	}
	task, err := s.creator.Create(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("service", "synthetic_error")
		return model.SyntheticTask{}, err
	}
	s.syntheticIssued.Add(1)
	return task, nil
}

// SynapseParams returns the parameters advertised to miners.
func (s *Service) SynapseParams() model.SynapseParams {
	if s.creator == nil {
		return s.synapseParams
	}
	return s.creator.SynapseParams()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"workerCount":      s.workerCount,
		"queueSize":        s.queueSize,
		"spotCheckCount":   s.preprocessor.SpotCheckCount(),
		"synapseTimeout":   s.synapseTimeout,
		"requestsScored":   s.scored.Load(),
		"requestsFailed":   s.failed.Load(),
		"minersScored":     s.minersScored.Load(),
		"digestsQueued":    s.digestsQueued.Load(),
		"digestsDropped":   s.digestsDropped.Load(),
		"syntheticIssued":  s.syntheticIssued.Load(),
		"digestionEnabled": s.sender != nil,
	}

	if s.started && s.digestQueue != nil {
		queueLen := s.digestQueue.Len(context.Background())
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
