package apify

import (
	"context"
	"encoding/json"

	"github.com/okian/spotcheck/internal/domain/synthetic"
)

// DefaultPlaceSearchActor searches places by free text.
const DefaultPlaceSearchActor = "agents/google-maps-search"

type searchInput struct {
	SearchTerms []string `json:"searchTerms"`
	Language    string   `json:"language"`
	MaxItems    int      `json:"maxItems"`
}

type searchItem struct {
	Type         string `json:"type"`
	PlaceID      string `json:"placeId"`
	FID          string `json:"fid"`
	Title        string `json:"title"`
	ReviewsCount *int   `json:"reviewsCount"`
}

// PlaceSearcher implements synthetic.Searcher.
type PlaceSearcher struct {
	client *Client
	actor  string
}

var _ synthetic.Searcher = (*PlaceSearcher)(nil)

// NewPlaceSearcher creates a searcher running actor on client.
// An empty actor selects DefaultPlaceSearchActor.
func NewPlaceSearcher(client *Client, actor string) *PlaceSearcher {
	if actor == "" {
		actor = DefaultPlaceSearchActor
	}
	return &PlaceSearcher{client: client, actor: actor}
}

// SearchPlaces runs one search. Items that do not decode are skipped and a
// missing review count reads as zero.
func (s *PlaceSearcher) SearchPlaces(ctx context.Context, query, language string, maxItems int) ([]synthetic.Place, error) {
	items, err := s.client.RunActor(ctx, s.actor, searchInput{
		SearchTerms: []string{query},
		Language:    language,
		MaxItems:    maxItems,
	})
	if err != nil {
		return nil, err
	}

	places := make([]synthetic.Place, 0, len(items))
	for _, raw := range items {
		var it searchItem
		if err := json.Unmarshal(raw, &it); err != nil {
			continue
		}
		p := synthetic.Place{
			Type:    it.Type,
			PlaceID: it.PlaceID,
			FID:     it.FID,
			Name:    it.Title,
		}
		if it.ReviewsCount != nil {
			p.ReviewCount = *it.ReviewsCount
		}
		places = append(places, p)
	}
	return places, nil
}
