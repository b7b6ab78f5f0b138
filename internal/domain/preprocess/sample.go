package preprocess

import (
	"math/rand"
	"time"

	"github.com/okian/spotcheck/internal/domain/model"
)

// SelectSpotCheck picks up to count reviews for verification. The most
// recently published review is always first; the rest are drawn from the
// remaining reviews without replacement. mostRecent is the newest
// publishedAtDate in reviews, nil when none applies.
func SelectSpotCheck(reviews []model.Review, count int, rng *rand.Rand) (sample []model.Review, mostRecent *time.Time) {
	n := min(count, len(reviews))
	if n <= 0 {
		return []model.Review{}, nil
	}

	newest := 0
	var newestAt time.Time
	found := false
	for i, r := range reviews {
		at, ok := model.ParseTimestamp(r.PublishedAtDate)
		if !ok {
			continue
		}
		// strict: the first of equally recent reviews is kept
		if !found || at.After(newestAt) {
			newest, newestAt, found = i, at, true
		}
	}
	if found {
		mostRecent = &newestAt
	}

	sample = make([]model.Review, 0, n)
	sample = append(sample, reviews[newest])
	if n == 1 {
		return sample, mostRecent
	}

	rest := make([]model.Review, 0, len(reviews)-1)
	rest = append(rest, reviews[:newest]...)
	rest = append(rest, reviews[newest+1:]...)
	rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })

	return append(sample, rest[:n-1]...), mostRecent
}
