package spotcheck

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/spotcheck/internal/domain/model"
	"github.com/okian/spotcheck/pkg/metrics"
)

// Sentinel kinds for reconciliation failures.
var (
	ErrNotVerified   = errors.New("no verified review found")
	ErrFieldMismatch = errors.New("field mismatch")
	ErrTextMismatch  = errors.New("text mismatch")
	ErrDateMismatch  = errors.New("date mismatch")
)

// Reconcile checks every sampled review against the verified set and returns
// the first discrepancy.
func Reconcile(sample []model.Review, fid string, verified VerifiedSet) error {
	for _, orig := range sample {
		v, ok := verified[orig.ReviewID]
		if !ok {
			metrics.RecordSpotCheckMismatch("missing")
			return fmt.Errorf("reviewId %s: %w", orig.ReviewID, ErrNotVerified)
		}

		checks := []struct {
			field, want, got string
		}{
			{"fid", fid, v.FID},
			{"reviewerId", orig.ReviewerID, v.ReviewerID},
			{"placeId", orig.PlaceID, v.PlaceID},
		}
		for _, c := range checks {
			if c.want != c.got {
				metrics.RecordSpotCheckMismatch(c.field)
				return fmt.Errorf("reviewId %s: %s expected %q, got %q: %w", orig.ReviewID, c.field, c.want, c.got, ErrFieldMismatch)
			}
		}

		if !sameText(orig.Text, v.Text) {
			metrics.RecordSpotCheckMismatch("text")
			return fmt.Errorf("reviewId %s: %w", orig.ReviewID, ErrTextMismatch)
		}

		// The verification source reports the last edit as its publish date.
		if !sameSecond(orig.LastEditedAtDate, v.PublishedAtDate) {
			metrics.RecordSpotCheckMismatch("date")
			return fmt.Errorf("reviewId %s: %w", orig.ReviewID, ErrDateMismatch)
		}
	}
	return nil
}

// ValidateMinerAgainstBatch reports whether the whole sample matches.
func ValidateMinerAgainstBatch(sample []model.Review, fid string, verified VerifiedSet) bool {
	return Reconcile(sample, fid, verified) == nil
}

// sameText treats null and absent as equal, and neither as equal to any string.
func sameText(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// sameSecond compares two timestamps truncated to whole seconds. A timestamp
// that does not parse never matches.
func sameSecond(a, b string) bool {
	ta, ok := model.ParseTimestamp(a)
	if !ok {
		return false
	}
	tb, ok := model.ParseTimestamp(b)
	if !ok {
		return false
	}
	return ta.Truncate(time.Second).Equal(tb.Truncate(time.Second))
}
