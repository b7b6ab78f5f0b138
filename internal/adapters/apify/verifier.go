package apify

import (
	"context"
	"encoding/json"

	"github.com/okian/spotcheck/internal/domain/model"
	"github.com/okian/spotcheck/internal/domain/spotcheck"
	"github.com/okian/spotcheck/pkg/logger"
)

// DefaultSpotCheckActor scrapes individual review pages.
const DefaultSpotCheckActor = "compass/Google-Maps-Reviews-Scraper"

type spotCheckInput struct {
	StartURLs []spotcheck.Request `json:"startUrls"`
}

// SpotCheckVerifier implements spotcheck.Verifier with one actor run per batch.
type SpotCheckVerifier struct {
	client *Client
	actor  string
}

var _ spotcheck.Verifier = (*SpotCheckVerifier)(nil)

// NewSpotCheckVerifier creates a verifier running actor on client.
// An empty actor selects DefaultSpotCheckActor.
func NewSpotCheckVerifier(client *Client, actor string) *SpotCheckVerifier {
	if actor == "" {
		actor = DefaultSpotCheckActor
	}
	return &SpotCheckVerifier{client: client, actor: actor}
}

// Verify fetches the review pages in reqs. Items that do not decode into a
// review are skipped; they simply fail to match anything.
func (v *SpotCheckVerifier) Verify(ctx context.Context, fid string, reqs []spotcheck.Request) ([]model.VerifiedReview, error) {
	items, err := v.client.RunActor(ctx, v.actor, spotCheckInput{StartURLs: reqs})
	if err != nil {
		return nil, err
	}

	out := make([]model.VerifiedReview, 0, len(items))
	skipped := 0
	for _, raw := range items {
		var vr model.VerifiedReview
		if err := json.Unmarshal(raw, &vr); err != nil {
			skipped++
			continue
		}
		out = append(out, vr)
	}
	if skipped > 0 {
		v.client.log.Warn(ctx, "skipped undecodable verified reviews",
			logger.String("fid", fid),
			logger.Int("skipped", skipped),
		)
	}
	return out, nil
}
