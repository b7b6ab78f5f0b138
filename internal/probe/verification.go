package probe

import (
	"errors"
	"fmt"
	"math"
)

// Invariant kinds reported by Check.
var (
	ErrShape       = errors.New("response shape does not match the cohort")
	ErrScoreRange  = errors.New("score outside [0, 1]")
	ErrPrecision   = errors.New("score not rounded to 4 decimals")
	ErrRejectScore = errors.New("rejected miner has a non-zero score")
	ErrStatistics  = errors.New("statistics disagree with scores")
	ErrMustReject  = errors.New("malformed submission passed validation")
)

const scoreEpsilon = 1e-9

// Check compares one scoring response against the cohort it was produced
// from and returns every invariant it breaks.
func Check(c Cohort, r Result) []error {
	var errs []error
	add := func(kind error, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), kind))
	}

	n := len(c.Responses)
	if r.Status != "success" || r.FID != c.FID {
		add(ErrShape, "status %q fid %q", r.Status, r.FID)
	}
	if len(r.Scores) != n || len(r.DetailedResults) != n || r.Statistics.Count != n {
		add(ErrShape, "%d miners, %d scores, %d results, count %d",
			n, len(r.Scores), len(r.DetailedResults), r.Statistics.Count)
		return errs
	}

	sum, lo, hi := 0.0, math.Inf(1), math.Inf(-1)
	for i, s := range r.Scores {
		if s < 0 || s > 1 {
			add(ErrScoreRange, "miner %d score %v", i, s)
		}
		if math.Abs(s*1e4-math.Round(s*1e4)) > 1e-6 {
			add(ErrPrecision, "miner %d score %v", i, s)
		}
		sum += s
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)

		d := r.DetailedResults[i]
		if d.MinerIndex != i || d.Score != s {
			add(ErrShape, "miner %d detailed result out of order", i)
		}
		if !d.PassedValidation && s != 0 {
			add(ErrRejectScore, "miner %d (%s) score %v", i, d.ValidationError, s)
		}
		if d.PassedValidation && mustReject(c.Behaviors, i) {
			add(ErrMustReject, "miner %d behavior %s", i, c.Behaviors[i])
		}
	}

	if n > 0 {
		if math.Abs(r.Statistics.Min-lo) > scoreEpsilon || math.Abs(r.Statistics.Max-hi) > scoreEpsilon {
			add(ErrStatistics, "min %v max %v, want %v %v", r.Statistics.Min, r.Statistics.Max, lo, hi)
		}
		if math.Abs(r.Statistics.Mean-sum/float64(n)) > scoreEpsilon {
			add(ErrStatistics, "mean %v, want %v", r.Statistics.Mean, sum/float64(n))
		}
	}
	return errs
}

func mustReject(behaviors []Behavior, i int) bool {
	if i >= len(behaviors) {
		return false
	}
	switch behaviors[i] {
	case BehaviorEmpty, BehaviorNotArray, BehaviorWrongFID, BehaviorMissingField:
		return true
	}
	return false
}
