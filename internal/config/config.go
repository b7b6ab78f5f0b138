// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keys are flat snake_case and match the koanf tags below.
// - Durations are expressed in seconds to keep env overrides simple.
// - Load wraps failures with this package's sentinel errors.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":3002".
	Addr string `koanf:"addr"`

	// LocalhostOnly rejects requests from non-loopback clients.
	LocalhostOnly bool `koanf:"localhost_only"`

	// MaxBodyBytes caps the size of a scoring request body.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// SpotCheckCount is the number of reviews sampled per miner.
	SpotCheckCount int `koanf:"spot_check_count"`

	// SynapseTimeoutSec is used when a scoring request omits synapseTimeout.
	SynapseTimeoutSec float64 `koanf:"synapse_timeout_sec"`

	// PreprocessWorkers bounds per-miner parallelism in phase one.
	PreprocessWorkers int `koanf:"preprocess_workers"`

	// VerifyTimeoutSec bounds the batched verification call.
	VerifyTimeoutSec int `koanf:"verify_timeout_sec"`

	// Actor runner settings.
	ApifyBaseURL     string `koanf:"apify_base_url"`
	ApifyToken       string `koanf:"apify_token"`
	SpotCheckActor   string `koanf:"spot_check_actor"`
	PlaceSearchActor string `koanf:"place_search_actor"`

	// Synthetic task settings.
	SearchMaxItems       int      `koanf:"search_max_items"`
	MinReviewsRequired   int      `koanf:"min_reviews_required"`
	SyntheticMaxAttempts int      `koanf:"synthetic_max_attempts"`
	PlaceTypes           []string `koanf:"place_types"`
	SynapseLanguage      string   `koanf:"synapse_language"`
	SynapseSort          string   `koanf:"synapse_sort"`

	// Digestion settings.
	DigestURL         string `koanf:"digest_url"`
	DigestToken       string `koanf:"digest_token"`
	DigestQueueSize   int    `koanf:"digest_queue_size"`
	DigestWorkerCount int    `koanf:"digest_worker_count"`
	DigestTimeoutSec  int    `koanf:"digest_timeout_sec"`

	// Circuit breaker around actor runs.
	BreakerFailureRatio   float64 `koanf:"breaker_failure_ratio"`
	BreakerMinRequests    uint32  `koanf:"breaker_min_requests"`
	BreakerOpenTimeoutSec int     `koanf:"breaker_open_timeout_sec"`

	// RandomSeed makes sampling reproducible when non-zero.
	RandomSeed int64 `koanf:"random_seed"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":3002",
		LocalhostOnly:         true,
		MaxBodyBytes:          100 << 20,
		SpotCheckCount:        3,
		SynapseTimeoutSec:     120,
		PreprocessWorkers:     runtime.NumCPU(),
		VerifyTimeoutSec:      90,
		ApifyBaseURL:          "https://api.apify.com",
		SpotCheckActor:        "compass/Google-Maps-Reviews-Scraper",
		PlaceSearchActor:      "agents/google-maps-search",
		SearchMaxItems:        20,
		MinReviewsRequired:    20,
		SyntheticMaxAttempts:  10,
		SynapseLanguage:       "en",
		SynapseSort:           "newest",
		DigestURL:             "https://oneoneone.io/api/digest",
		DigestQueueSize:       1024,
		DigestWorkerCount:     4,
		DigestTimeoutSec:      30,
		BreakerFailureRatio:   0.6,
		BreakerMinRequests:    5,
		BreakerOpenTimeoutSec: 30,
	}
}

// VerifyTimeout returns VerifyTimeoutSec as a duration.
func (c *Config) VerifyTimeout() time.Duration {
	return time.Duration(c.VerifyTimeoutSec) * time.Second
}

// DigestTimeout returns DigestTimeoutSec as a duration.
func (c *Config) DigestTimeout() time.Duration {
	return time.Duration(c.DigestTimeoutSec) * time.Second
}

// BreakerOpenTimeout returns BreakerOpenTimeoutSec as a duration.
func (c *Config) BreakerOpenTimeout() time.Duration {
	return time.Duration(c.BreakerOpenTimeoutSec) * time.Second
}
