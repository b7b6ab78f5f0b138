package probe

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Behavior is how a generated miner shapes its submission.
type Behavior int

// Miner behaviors. Only BehaviorHonest and BehaviorDuplicates can pass
// preprocessing; the rest exercise a specific rejection path.
const (
	BehaviorHonest Behavior = iota
	BehaviorDuplicates
	BehaviorEmpty
	BehaviorNotArray
	BehaviorWrongFID
	BehaviorMissingField
	behaviorCount
)

func (b Behavior) String() string {
	switch b {
	case BehaviorHonest:
		return "honest"
	case BehaviorDuplicates:
		return "duplicates"
	case BehaviorEmpty:
		return "empty"
	case BehaviorNotArray:
		return "not_array"
	case BehaviorWrongFID:
		return "wrong_fid"
	case BehaviorMissingField:
		return "missing_field"
	default:
		return "unknown"
	}
}

// Generation ranges.
const (
	minReviewsPerMiner = 1
	maxResponseTimeSec = 60.0
	maxReviewAgeHours  = 24 * 30
	firstMinerUID      = 100
)

// review is the wire shape of a generated review.
type review struct {
	ReviewerID      string  `json:"reviewerId"`
	ReviewerURL     string  `json:"reviewerUrl"`
	ReviewerName    string  `json:"reviewerName"`
	ReviewID        string  `json:"reviewId"`
	ReviewURL       string  `json:"reviewUrl"`
	PublishedAtDate string  `json:"publishedAtDate"`
	PlaceID         string  `json:"placeId"`
	CID             string  `json:"cid"`
	FID             string  `json:"fid"`
	TotalScore      float64 `json:"totalScore"`
	Text            string  `json:"text"`
}

// Generator builds cohorts from a seeded source.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator creates a Generator. A zero seed uses the current time.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		rng: rand.New(rand.NewSource(seed)), //nolint:gosec // load data, not secrets
		now: time.Now,
	}
}

// Cohorts generates cfg.Cohorts scoring requests.
func (g *Generator) Cohorts(cfg *Config) []Cohort {
	out := make([]Cohort, cfg.Cohorts)
	for i := range out {
		out[i] = g.Cohort(cfg, i)
	}
	return out
}

// Cohort generates one scoring request. The first miner is always honest so
// every cohort has at least one candidate for a positive score.
func (g *Generator) Cohort(cfg *Config, n int) Cohort {
	fid := fmt.Sprintf("0x%x:0x%x", g.rng.Uint32(), n)
	c := Cohort{
		FID:           fid,
		Responses:     make([]json.RawMessage, cfg.Miners),
		ResponseTimes: make([]*float64, cfg.Miners),
		MinerUIDs:     make([]int, cfg.Miners),
		Behaviors:     make([]Behavior, cfg.Miners),
	}
	if cfg.SynapseTimeout > 0 {
		t := cfg.SynapseTimeout
		c.SynapseTimeout = &t
	}

	for i := 0; i < cfg.Miners; i++ {
		b := BehaviorHonest
		if i > 0 {
			b = Behavior(g.rng.Intn(int(behaviorCount)))
		}
		c.Behaviors[i] = b
		c.MinerUIDs[i] = firstMinerUID + i
		c.Responses[i] = g.submission(fid, b, cfg.ReviewsPerMiner)

		rt := g.rng.Float64() * maxResponseTimeSec
		c.ResponseTimes[i] = &rt
	}
	return c
}

func (g *Generator) submission(fid string, b Behavior, maxReviews int) json.RawMessage {
	if maxReviews < minReviewsPerMiner {
		maxReviews = minReviewsPerMiner
	}
	count := minReviewsPerMiner + g.rng.Intn(maxReviews)

	switch b {
	case BehaviorEmpty:
		return json.RawMessage(`[]`)
	case BehaviorNotArray:
		return json.RawMessage(`{"error":"scrape failed"}`)
	}

	reviews := make([]review, count)
	for i := range reviews {
		reviews[i] = g.review(fid)
	}

	switch b {
	case BehaviorDuplicates:
		// Re-send the first review with an edited score; last one wins.
		dup := reviews[0]
		dup.TotalScore = float64(1 + g.rng.Intn(5))
		reviews = append(reviews, dup)
	case BehaviorWrongFID:
		reviews[len(reviews)-1].FID = fid + "-other"
	case BehaviorMissingField:
		items := make([]map[string]any, len(reviews))
		for i, r := range reviews {
			items[i] = asMap(r)
		}
		delete(items[g.rng.Intn(len(items))], "reviewUrl")
		return mustMarshal(items)
	}
	return mustMarshal(reviews)
}

func (g *Generator) review(fid string) review {
	reviewID := uuid.NewString()
	reviewerID := uuid.NewString()
	age := time.Duration(g.rng.Intn(maxReviewAgeHours)) * time.Hour
	return review{
		ReviewerID:      reviewerID,
		ReviewerURL:     "https://www.google.com/maps/contrib/" + reviewerID,
		ReviewerName:    "Reviewer " + reviewerID[:8],
		ReviewID:        reviewID,
		ReviewURL:       "https://www.google.com/maps/reviews/" + reviewID,
		PublishedAtDate: g.now().Add(-age).UTC().Format("2006-01-02T15:04:05.000Z"),
		PlaceID:         "ChIJ" + reviewID[:12],
		CID:             fmt.Sprintf("%d", g.rng.Int63()),
		FID:             fid,
		TotalScore:      float64(1 + g.rng.Intn(5)),
		Text:            "Generated review " + reviewID[:8],
	}
}

func asMap(r review) map[string]any {
	var m map[string]any
	_ = json.Unmarshal(mustMarshal(r), &m)
	return m
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal generated data: %v", err))
	}
	return b
}
