package probe

import (
	"encoding/json"
	"time"
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL         string        // Base URL of the validator
	Cohorts         int           // Number of scoring requests to send
	Miners          int           // Miners per cohort
	ReviewsPerMiner int           // Upper bound of reviews per well-behaved miner
	Workers         int           // Concurrent requests in flight
	Timeout         time.Duration // HTTP request timeout
	SynapseTimeout  float64       // Sent with every request; zero omits it
	OutputFile      string        // Where generated cohorts are written
	Verbose         bool          // Log every response
	Seed            int64         // Zero picks a time-based seed
}

// Cohort is one generated scoring request plus what the generator intended.
type Cohort struct {
	FID            string            `json:"fid"`
	Responses      []json.RawMessage `json:"responses"`
	ResponseTimes  []*float64        `json:"responseTimes"`
	SynapseTimeout *float64          `json:"synapseTimeout,omitempty"`
	MinerUIDs      []int             `json:"minerUIDs"`

	// Behaviors records the submission style chosen for each miner.
	Behaviors []Behavior `json:"-"`
}

// Result is the subset of a scoring response the probe checks.
type Result struct {
	Status     string    `json:"status"`
	FID        string    `json:"fid"`
	Scores     []float64 `json:"scores"`
	Statistics struct {
		Count int     `json:"count"`
		Mean  float64 `json:"mean"`
		Min   float64 `json:"min"`
		Max   float64 `json:"max"`
	} `json:"statistics"`
	DetailedResults []struct {
		MinerUID         json.RawMessage `json:"minerUID"`
		MinerIndex       int             `json:"minerIndex"`
		Score            float64         `json:"score"`
		PassedValidation bool            `json:"passedValidation"`
		ValidationError  string          `json:"validationError"`
	} `json:"detailedResults"`
}

// Stats holds run statistics.
type Stats struct {
	CohortsGenerated int
	CohortsSubmitted int
	CohortsScored    int
	CohortsFailed    int
	Violations       int
	MinersPassed     int
	MinersRejected   int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
