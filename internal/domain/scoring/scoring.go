// Package scoring computes cohort-normalized composite scores for miners.
package scoring

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/okian/spotcheck/internal/domain/model"
	"github.com/okian/spotcheck/pkg/logger"
)

// Default scoring configuration constants.
const (
	defaultSpeedWeight   = 0.3
	defaultVolumeWeight  = 0.5
	defaultRecencyWeight = 0.2
	roundingFactor       = 1e4
)

// Reasons recorded on miners that cannot be scored.
const (
	ReasonNoValidResponses = "No valid responses"
	ReasonUnknown          = "Unknown error"
)

// Weights are the share of each component in the composite score.
type Weights struct {
	Speed   float64
	Volume  float64
	Recency float64
}

// DefaultWeights returns the standard 0.3/0.5/0.2 split.
func DefaultWeights() Weights {
	return Weights{Speed: defaultSpeedWeight, Volume: defaultVolumeWeight, Recency: defaultRecencyWeight}
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithWeights overrides the component weights. Negative weights are ignored.
func WithWeights(w Weights) Option {
	return func(c *Calculator) {
		if w.Speed >= 0 && w.Volume >= 0 && w.Recency >= 0 {
			c.weights = w
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Calculator) {
		if l != nil {
			c.log = l
		}
	}
}

// Calculator turns validation records into final scores.
type Calculator struct {
	weights Weights
	log     logger.Logger
}

// NewCalculator creates a Calculator with configuration options.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("scoring")
	}
	return c
}

// baseline holds the cohort statistics every miner is normalized against.
type baseline struct {
	tmin      float64
	vmax      int
	newest    time.Time
	oldest    time.Time
	hasDates  bool
	dateRange time.Duration
}

// Calculate scores every record. responseTimes is index-aligned with records;
// a missing or negative entry counts as synapseTimeout. Only records that
// passed validation and answered strictly within synapseTimeout are eligible,
// and baselines come from eligible records only.
func (c *Calculator) Calculate(ctx context.Context, records []model.ValidationRecord, responseTimes []*float64, synapseTimeout float64) model.Summary {
	timed := make([]model.ValidationRecord, len(records))
	var eligible []model.ValidationRecord
	for i, r := range records {
		rt := synapseTimeout
		if i < len(responseTimes) && responseTimes[i] != nil && *responseTimes[i] >= 0 {
			rt = *responseTimes[i]
		}
		timed[i] = r.WithResponseTime(rt)
		if r.PassedValidation() && rt < synapseTimeout {
			eligible = append(eligible, timed[i])
		}
	}

	if len(eligible) == 0 {
		c.log.Warn(ctx, "no valid results to score", logger.Int("miners", len(records)))
		return c.allRejected(timed)
	}

	b := newBaseline(eligible)
	c.log.Info(ctx, "scoring parameters",
		logger.Float64("tmin", b.tmin),
		logger.Int("vmax", b.vmax),
		logger.Float64("dateRangeDays", b.dateRange.Hours()/24),
	)

	results := make([]model.ScoreResult, len(timed))
	for i, r := range timed {
		results[i] = c.score(ctx, i, r, b, synapseTimeout)
	}
	return summarize(results)
}

func (c *Calculator) score(ctx context.Context, index int, r model.ValidationRecord, b baseline, synapseTimeout float64) model.ScoreResult {
	rt := *r.ResponseTime
	res := model.ScoreResult{
		MinerUID:     r.MinerUID,
		MinerIndex:   index,
		ResponseTime: rt,
		Count:        r.Count,
	}

	if !r.PassedValidation() || rt >= synapseTimeout {
		res.ValidationError = r.ValidationError
		if res.ValidationError == "" {
			if rt >= synapseTimeout {
				res.ValidationError = timeoutReason(synapseTimeout)
			} else {
				res.ValidationError = ReasonUnknown
			}
		}
		return res
	}

	var comp model.Components
	if rt > 0 {
		comp.SpeedScore = b.tmin / rt
	}
	if b.vmax > 0 {
		comp.VolumeScore = float64(r.Count) / float64(b.vmax)
	}
	if r.MostRecentDate != nil && b.hasDates {
		if b.dateRange > 0 {
			comp.RecencyScore = float64(r.MostRecentDate.Sub(b.oldest)) / float64(b.dateRange)
		} else {
			// every dated miner shares one timestamp
			comp.RecencyScore = 1
		}
	}

	total := c.weights.Speed*comp.SpeedScore + c.weights.Volume*comp.VolumeScore + c.weights.Recency*comp.RecencyScore

	c.log.Info(ctx, "miner final score",
		logger.String("minerUID", r.MinerUID.String()),
		logger.Float64("score", round4(total)),
		logger.Float64("speed", round4(comp.SpeedScore)),
		logger.Float64("responseTime", rt),
		logger.Float64("volume", round4(comp.VolumeScore)),
		logger.Int("count", r.Count),
		logger.Float64("recency", round4(comp.RecencyScore)),
	)

	res.Score = round4(total)
	res.Components = model.Components{
		SpeedScore:   round4(comp.SpeedScore),
		VolumeScore:  round4(comp.VolumeScore),
		RecencyScore: round4(comp.RecencyScore),
	}
	res.PassedValidation = true
	if r.MostRecentDate != nil {
		res.MostRecentDate = model.FormatISO(*r.MostRecentDate)
	}
	return res
}

// allRejected is the terminal branch when no miner is eligible.
func (c *Calculator) allRejected(timed []model.ValidationRecord) model.Summary {
	results := make([]model.ScoreResult, len(timed))
	scores := make([]float64, len(timed))
	for i, r := range timed {
		reason := r.ValidationError
		if reason == "" {
			reason = ReasonNoValidResponses
		}
		results[i] = model.ScoreResult{
			MinerUID:        r.MinerUID,
			MinerIndex:      i,
			ValidationError: reason,
			ResponseTime:    *r.ResponseTime,
		}
	}
	return model.Summary{Scores: scores, FinalScores: results}
}

func newBaseline(eligible []model.ValidationRecord) baseline {
	b := baseline{tmin: math.Inf(1)}
	for _, r := range eligible {
		b.tmin = math.Min(b.tmin, *r.ResponseTime)
		b.vmax = max(b.vmax, r.Count)
		if r.MostRecentDate == nil {
			continue
		}
		d := *r.MostRecentDate
		if !b.hasDates || d.After(b.newest) {
			b.newest = d
		}
		if !b.hasDates || d.Before(b.oldest) {
			b.oldest = d
		}
		b.hasDates = true
	}
	if b.hasDates {
		b.dateRange = b.newest.Sub(b.oldest)
	}
	return b
}

func summarize(results []model.ScoreResult) model.Summary {
	s := model.Summary{
		Scores:      make([]float64, len(results)),
		FinalScores: results,
	}
	if len(results) == 0 {
		return s
	}
	s.MinScore = math.Inf(1)
	s.MaxScore = math.Inf(-1)
	var sum float64
	for i, r := range results {
		s.Scores[i] = r.Score
		sum += r.Score
		s.MinScore = math.Min(s.MinScore, r.Score)
		s.MaxScore = math.Max(s.MaxScore, r.Score)
	}
	s.MeanScore = sum / float64(len(results))
	return s
}

func timeoutReason(synapseTimeout float64) string {
	return "Response timeout (>= " + strconv.FormatFloat(synapseTimeout, 'f', -1, 64) + "s)"
}

// round4 rounds half away from zero on the scaled value. Exact binary
// half-way cases may land one unit off a decimal toFixed(4); that is accepted.
func round4(v float64) float64 {
	return math.Round(v*roundingFactor) / roundingFactor
}
