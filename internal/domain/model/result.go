package model

import (
	"encoding/json"
	"errors"
)

var (
	// ErrInvalidRequest marks a scoring request rejected before any phase runs.
	ErrInvalidRequest = errors.New("fid and responses array are required")
	// ErrSyntheticUnavailable marks synthetic task creation as unconfigured.
	ErrSyntheticUnavailable = errors.New("synthetic task creation not configured")
)

// ScoreResult is the final per-miner output.
type ScoreResult struct {
	MinerUID         MinerUID   `json:"minerUID"`
	MinerIndex       int        `json:"minerIndex"`
	Score            float64    `json:"score"`
	Components       Components `json:"components"`
	PassedValidation bool       `json:"passedValidation"`
	ValidationError  string     `json:"validationError,omitempty"`
	ResponseTime     float64    `json:"responseTime"`
	Count            int        `json:"count"`
	MostRecentDate   string     `json:"mostRecentDate,omitempty"`
}

// Summary is the cohort-wide scoring outcome.
type Summary struct {
	Scores      []float64
	MeanScore   float64
	MinScore    float64
	MaxScore    float64
	FinalScores []ScoreResult
}

// ScoreRequest is the body of a scoring call. Responses stay raw so that
// malformed submissions reject a single miner rather than the whole request.
type ScoreRequest struct {
	FID            string            `json:"fid" validate:"required"`
	Responses      []json.RawMessage `json:"responses" validate:"required"`
	ResponseTimes  []*float64        `json:"responseTimes"`
	SynapseTimeout *float64          `json:"synapseTimeout,omitempty"`
	MinerUIDs      []MinerUID        `json:"minerUIDs"`
}

// Statistics summarizes the cohort scores.
type Statistics struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// ScoreResponse is the body returned for a successful scoring call.
type ScoreResponse struct {
	Status          string        `json:"status"`
	FID             string        `json:"fid"`
	Scores          []float64     `json:"scores"`
	Statistics      Statistics    `json:"statistics"`
	Timestamp       string        `json:"timestamp"`
	DetailedResults []ScoreResult `json:"detailedResults"`
}

// DigestJob is one miner's accepted reviews bound for the digestion sink.
type DigestJob struct {
	DatasetType string
	MinerUID    MinerUID
	Reviews     []Review
}

// SynapseParams are the query parameters miners are asked to use.
type SynapseParams struct {
	Language string `json:"language"`
	Sort     string `json:"sort"`
	Timeout  int    `json:"timeout"`
}

// SyntheticTask is a scraping task handed to miners.
type SyntheticTask struct {
	DataID        string        `json:"dataId"`
	ID            string        `json:"id"`
	SynapseParams SynapseParams `json:"synapse_params"`
	Timestamp     string        `json:"timestamp"`
	TotalTime     float64       `json:"totalTime"`
}
