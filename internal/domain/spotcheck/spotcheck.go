// Package spotcheck verifies sampled miner reviews against ground truth in a
// single batched call and reconciles each miner's sample.
package spotcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/spotcheck/internal/domain/model"
	"github.com/okian/spotcheck/pkg/logger"
	"github.com/okian/spotcheck/pkg/metrics"
)

// Reasons recorded on miners that fail verification.
const (
	ReasonBatchFailed = "Batch spot check failed"
	ReasonMismatch    = "Failed spot check verification"
)

// Default verification configuration constants.
const (
	defaultTimeout = 90 * time.Second
)

// ErrBatchFailed wraps any failure of the verification call.
var ErrBatchFailed = errors.New("batch spot check failed")

// Request is one review page to fetch from the verification source.
type Request struct {
	URL    string `json:"url"`
	Method string `json:"method"`
}

// Verifier fetches ground-truth reviews for a batch of review URLs.
type Verifier interface {
	Verify(ctx context.Context, fid string, reqs []Request) ([]model.VerifiedReview, error)
}

// VerifiedSet maps reviewId to its ground-truth record. It is built once per
// batch and only read afterwards.
type VerifiedSet map[string]model.VerifiedReview

// BuildRequests flattens all samples into verification requests, in batch order.
func BuildRequests(batches []model.SpotCheck) []Request {
	var reqs []Request
	for _, b := range batches {
		for _, r := range b.Reviews {
			reqs = append(reqs, Request{URL: r.ReviewURL, Method: http.MethodGet})
		}
	}
	return reqs
}

// NewVerifiedSet indexes verified reviews by reviewId. Later records replace
// earlier ones; records without a reviewId are dropped.
func NewVerifiedSet(verified []model.VerifiedReview) VerifiedSet {
	set := make(VerifiedSet, len(verified))
	for _, v := range verified {
		if v.ReviewID == "" {
			continue
		}
		set[v.ReviewID] = v
	}
	return set
}

// Option applies a configuration option to the Checker.
type Option func(*Checker)

// WithTimeout bounds the verification call.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.log = l
		}
	}
}

// Checker runs the batched verification and applies its verdicts.
type Checker struct {
	verifier Verifier
	timeout  time.Duration
	log      logger.Logger
}

// New creates a Checker backed by v.
func New(v Verifier, opts ...Option) *Checker {
	c := &Checker{
		verifier: v,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("spotcheck")
	}
	return c
}

// RunBatch sends every sampled review in one call. Any failure fails the
// whole batch; no partial set is returned.
func (c *Checker) RunBatch(ctx context.Context, fid string, batches []model.SpotCheck) (VerifiedSet, error) {
	reqs := BuildRequests(batches)
	start := time.Now()
	c.log.Info(ctx, "batch spot check started",
		logger.String("fid", fid),
		logger.Int("reviews", len(reqs)),
		logger.Int("miners", len(batches)),
	)

	vctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	verified, err := c.verifier.Verify(vctx, fid, reqs)
	took := time.Since(start)
	if err != nil {
		metrics.RecordSpotCheckBatch("failed", len(reqs), took)
		c.log.Error(ctx, "batch spot check failed", logger.Duration("took", took), logger.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrBatchFailed, err)
	}

	metrics.RecordSpotCheckBatch("success", len(reqs), took)
	c.log.Info(ctx, "batch spot check complete",
		logger.Int("verified", len(verified)),
		logger.Duration("took", took),
	)
	return NewVerifiedSet(verified), nil
}

// Apply runs the batch for all records needing a spot check and returns the
// updated records, index-aligned with the input. A failed batch rejects every
// such miner. The error is non-nil only when ctx itself has ended.
func (c *Checker) Apply(ctx context.Context, fid string, records []model.ValidationRecord, batches []model.SpotCheck) ([]model.ValidationRecord, error) {
	out := make([]model.ValidationRecord, len(records))
	copy(out, records)
	if len(batches) == 0 {
		return out, nil
	}

	verified, err := c.RunBatch(ctx, fid, batches)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("spot check: %w", ctxErr)
		}
		for i, r := range out {
			if r.NeedsSpotCheck() {
				out[i] = r.AbortBatch(ReasonBatchFailed)
			}
		}
		return out, nil
	}

	for i, r := range out {
		if !r.NeedsSpotCheck() {
			continue
		}
		log := c.log.With(logger.String("minerUID", r.MinerUID.String()))
		if err := Reconcile(r.Data, fid, verified); err != nil {
			log.Error(ctx, "spot check failed", logger.Error(err))
			out[i] = r.FailVerification(ReasonMismatch)
			continue
		}
		fields := []logger.Field{logger.Int("count", r.Count)}
		if r.MostRecentDate != nil {
			fields = append(fields, logger.String("mostRecent", model.FormatISO(*r.MostRecentDate)))
		}
		log.Info(ctx, "validation complete", fields...)
		out[i] = r.Verify()
	}
	return out, nil
}
