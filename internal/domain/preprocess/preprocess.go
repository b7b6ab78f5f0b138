// Package preprocess turns raw miner submissions into validation records and
// spot-check samples.
package preprocess

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/spotcheck/internal/domain/dedupe"
	"github.com/okian/spotcheck/internal/domain/model"
	"github.com/okian/spotcheck/pkg/logger"
)

// Rejection reasons reported on validation records.
const (
	ReasonNotArray   = "Response is not an array"
	ReasonEmpty      = "Response is empty"
	ReasonStructural = "Structural validation failed on review objects"
)

// Default preprocessing configuration constants.
const (
	defaultSpotCheckCount = 3
)

// Option applies a configuration option to the Preprocessor.
type Option func(*Preprocessor)

// WithSpotCheckCount sets how many reviews per miner are sampled. Zero or
// less disables sampling.
func WithSpotCheckCount(n int) Option {
	return func(p *Preprocessor) {
		p.spotCheckCount = n
	}
}

// WithSeed makes sampling reproducible.
func WithSeed(seed int64) Option {
	return func(p *Preprocessor) {
		p.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // sampling only needs to be unpredictable to miners, not cryptographic
	}
}

// WithConcurrency bounds the number of submissions prepared at once.
func WithConcurrency(n int) Option {
	return func(p *Preprocessor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Preprocessor) {
		if l != nil {
			p.log = l
		}
	}
}

// Result is the outcome of preprocessing a cohort.
type Result struct {
	// Records holds one record per submission, in input order.
	Records []model.ValidationRecord
	// Batches holds the non-empty samples, in input order.
	Batches []model.SpotCheck
}

// Preprocessor cleans, validates and samples submissions.
type Preprocessor struct {
	spotCheckCount int
	workers        int
	log            logger.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// New creates a Preprocessor.
func New(opts ...Option) *Preprocessor {
	p := &Preprocessor{
		spotCheckCount: defaultSpotCheckCount,
		workers:        runtime.GOMAXPROCS(0),
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // see WithSeed
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Get().Named("preprocess")
	}
	return p
}

// SpotCheckCount returns the configured sample size.
func (p *Preprocessor) SpotCheckCount() int { return p.spotCheckCount }

// Prepare processes every submission. Miners are handled in parallel but the
// output stays index-aligned with submissions. The only error is ctx ending.
func (p *Preprocessor) Prepare(ctx context.Context, fid string, submissions []json.RawMessage, uids []model.MinerUID) (Result, error) {
	records := make([]model.ValidationRecord, len(submissions))

	// Seeds are drawn in input order so a seeded run samples identically
	// regardless of goroutine scheduling.
	seeds := make([]int64, len(submissions))
	p.mu.Lock()
	for i := range seeds {
		seeds[i] = p.rng.Int63()
	}
	p.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, raw := range submissions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seeds[i])) //nolint:gosec // see WithSeed
			records[i] = p.prepareOne(ctx, fid, raw, model.ResolveUID(uids, i), rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("prepare submissions: %w", err)
	}

	var batches []model.SpotCheck
	for _, r := range records {
		if r.NeedsSpotCheck() {
			batches = append(batches, model.SpotCheck{MinerUID: r.MinerUID, Reviews: r.Data})
		}
	}
	return Result{Records: records, Batches: batches}, nil
}

func (p *Preprocessor) prepareOne(ctx context.Context, fid string, raw json.RawMessage, uid model.MinerUID, rng *rand.Rand) model.ValidationRecord {
	log := p.log.With(logger.String("minerUID", uid.String()))

	items, ok := splitArray(raw)
	if !ok {
		log.Error(ctx, "invalid response, not an array")
		return model.Rejected(uid, ReasonNotArray)
	}
	if len(items) == 0 {
		log.Error(ctx, "response is empty")
		return model.Rejected(uid, ReasonEmpty)
	}

	unique := dedupe.UniqueBy(decodeEntries(items), entryKey)
	log.Info(ctx, "data cleaning",
		logger.Int("reviews", len(items)),
		logger.Int("unique", len(unique)),
	)

	schema := ReviewSchema(fid)
	reviews := make([]model.Review, 0, len(unique))
	for _, e := range unique {
		if err := schema.Validate(e.fields); err != nil {
			log.Warn(ctx, "structural validation failed", logger.Error(err))
			return model.Rejected(uid, ReasonStructural)
		}
		reviews = append(reviews, model.ReviewFromFields(e.fields, e.raw))
	}
	log.Info(ctx, "structural validation passed", logger.Int("reviews", len(reviews)))

	sample, mostRecent := SelectSpotCheck(reviews, p.spotCheckCount, rng)
	for i, r := range sample {
		how := "random"
		if i == 0 {
			how = "most recent"
		}
		log.Info(ctx, "selected review for spot check",
			logger.String("selection", how),
			logger.String("reviewId", r.ReviewID),
			logger.String("publishedAtDate", r.PublishedAtDate),
		)
	}

	return model.Pending(uid, len(reviews), mostRecent, sample)
}

// CleanSubmission returns the deduplicated reviews of one submission that
// satisfy the schema, dropping the rest. ok is false when raw is not an array.
func (p *Preprocessor) CleanSubmission(fid string, raw json.RawMessage) (reviews []model.Review, ok bool) {
	items, ok := splitArray(raw)
	if !ok {
		return nil, false
	}
	schema := ReviewSchema(fid)
	reviews = []model.Review{}
	for _, e := range dedupe.UniqueBy(decodeEntries(items), entryKey) {
		if schema.Validate(e.fields) == nil {
			reviews = append(reviews, model.ReviewFromFields(e.fields, e.raw))
		}
	}
	return reviews, true
}

type entry struct {
	raw    json.RawMessage
	fields model.Fields // nil when raw is not an object
}

// entryKey is the literal reviewId value; absent and non-object entries share the empty key.
func entryKey(e entry) string {
	v, ok := e.fields["reviewId"]
	if !ok {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return string(v)
	}
	return buf.String()
}

func decodeEntries(items []json.RawMessage) []entry {
	out := make([]entry, len(items))
	for i, it := range items {
		out[i].raw = it
		if KindOf(it) != KindObject {
			continue
		}
		var f model.Fields
		if err := json.Unmarshal(it, &f); err == nil {
			out[i].fields = f
		}
	}
	return out
}

// splitArray decodes raw as a JSON array without decoding its elements.
func splitArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	if KindOf(raw) != KindArray {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}
