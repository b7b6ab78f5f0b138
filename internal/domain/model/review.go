// Package model contains domain models passed between layers.
package model

import "encoding/json"

// DatasetGoogleMapsReviews is the dataset type reported to the digestion sink.
const DatasetGoogleMapsReviews = "google-maps-reviews"

// Review is a single review reported by a miner.
// Fields mirror the JSON objects miners submit.
type Review struct {
	ReviewID         string  `json:"reviewId"`
	ReviewerID       string  `json:"reviewerId"`
	ReviewerURL      string  `json:"reviewerUrl"`
	ReviewerName     string  `json:"reviewerName"`
	ReviewURL        string  `json:"reviewUrl"`
	PublishedAtDate  string  `json:"publishedAtDate"`
	LastEditedAtDate string  `json:"lastEditedAtDate,omitempty"`
	PlaceID          string  `json:"placeId"`
	CID              string  `json:"cid"`
	FID              string  `json:"fid"`
	TotalScore       float64 `json:"totalScore"`
	Text             *string `json:"text"` // nil when absent or null

	// Raw is the object as the miner sent it; when set it is what gets re-encoded.
	Raw json.RawMessage `json:"-"`
}

type reviewAlias Review

// MarshalJSON re-emits the original object when available so extra keys survive.
func (r Review) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return json.Marshal(reviewAlias(r))
}

// Fields is a decoded JSON object whose values are left raw.
type Fields map[string]json.RawMessage

// ReviewFromFields builds a typed Review from a decoded object.
// Missing or mistyped values are left at their zero value; callers validate first.
func ReviewFromFields(f Fields, raw json.RawMessage) Review {
	r := Review{Raw: raw}
	r.ReviewID = f.String("reviewId")
	r.ReviewerID = f.String("reviewerId")
	r.ReviewerURL = f.String("reviewerUrl")
	r.ReviewerName = f.String("reviewerName")
	r.ReviewURL = f.String("reviewUrl")
	r.PublishedAtDate = f.String("publishedAtDate")
	r.LastEditedAtDate = f.String("lastEditedAtDate")
	r.PlaceID = f.String("placeId")
	r.CID = f.String("cid")
	r.FID = f.String("fid")
	r.TotalScore = f.Number("totalScore")
	r.Text = f.OptionalText("text")
	return r
}

// String returns the value of key when it holds a JSON string.
func (f Fields) String(key string) string {
	v, ok := f[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

// Number returns the value of key when it holds a JSON number.
func (f Fields) Number(key string) float64 {
	v, ok := f[key]
	if !ok {
		return 0
	}
	var n float64
	if err := json.Unmarshal(v, &n); err != nil {
		return 0
	}
	return n
}

// OptionalText returns nil for an absent or null value, the string for a JSON
// string and the literal text of anything else.
func (f Fields) OptionalText(key string) *string {
	v, ok := f[key]
	if !ok || isNull(v) {
		return nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return &s
	}
	lit := string(v)
	return &lit
}

// VerifiedReview is a ground-truth record returned by the verification source.
// It is only compared against miner reviews and never stored.
type VerifiedReview struct {
	ReviewID        string  `json:"reviewId"`
	FID             string  `json:"fid"`
	ReviewerID      string  `json:"reviewerId"`
	PlaceID         string  `json:"placeId"`
	Text            *string `json:"text"`
	PublishedAtDate string  `json:"publishedAtDate"`
}

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || string(v) == "null"
}
