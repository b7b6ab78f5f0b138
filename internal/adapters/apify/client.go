// Package apify runs scraping actors synchronously and reads their dataset items.
//
// Two collaborators are built on top of Client: SpotCheckVerifier fetches
// ground-truth reviews for the cross-verification step and PlaceSearcher looks
// up places for synthetic tasks.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/spotcheck/pkg/logger"
	"github.com/okian/spotcheck/pkg/metrics"
	"github.com/sony/gobreaker/v2"
)

// Default client configuration constants.
const (
	defaultBaseURL        = "https://api.apify.com"
	defaultHTTPTimeout    = 5 * time.Minute
	defaultBreakerName    = "apify"
	defaultFailureRatio   = 0.6
	defaultMinRequests    = 5
	defaultOpenTimeout    = 30 * time.Second
	defaultBreakerWindow  = 60 * time.Second
	maxErrorBodyBytes     = 512
	runSyncDatasetPathFmt = "%s/v2/acts/%s/run-sync-get-dataset-items"
)

var (
	// ErrNotConfigured is returned when no API token is set.
	ErrNotConfigured = errors.New("APIFY_TOKEN not configured")
	// ErrUnexpectedStatus is returned for any non-2xx actor response.
	ErrUnexpectedStatus = errors.New("unexpected actor response status")
	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = gobreaker.ErrOpenState
)

// BreakerConfig tunes the circuit breaker guarding actor runs.
type BreakerConfig struct {
	FailureRatio float64
	MinRequests  uint32
	OpenTimeout  time.Duration
}

// Client runs actors through the run-sync-get-dataset-items endpoint.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	breakerCfg BreakerConfig
	breaker    *gobreaker.CircuitBreaker[[]json.RawMessage]
	log        logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithToken sets the API token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient sets the HTTP client used for actor runs.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithBreaker sets circuit breaker thresholds. Zero fields keep their defaults.
func WithBreaker(cfg BreakerConfig) Option {
	return func(c *Client) {
		if cfg.FailureRatio > 0 {
			c.breakerCfg.FailureRatio = cfg.FailureRatio
		}
		if cfg.MinRequests > 0 {
			c.breakerCfg.MinRequests = cfg.MinRequests
		}
		if cfg.OpenTimeout > 0 {
			c.breakerCfg.OpenTimeout = cfg.OpenTimeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		breakerCfg: BreakerConfig{
			FailureRatio: defaultFailureRatio,
			MinRequests:  defaultMinRequests,
			OpenTimeout:  defaultOpenTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("apify")
	}
	c.breaker = c.newBreaker()
	return c
}

func (c *Client) newBreaker() *gobreaker.CircuitBreaker[[]json.RawMessage] {
	cfg := c.breakerCfg
	settings := gobreaker.Settings{
		Name:        defaultBreakerName,
		MaxRequests: 1,
		Interval:    defaultBreakerWindow,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn(context.Background(), "circuit breaker state change",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
			metrics.UpdateCircuitBreakerState(name, stateToFloat(to))
		},
		// A caller giving up says nothing about the actor's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	metrics.UpdateCircuitBreakerState(defaultBreakerName, 0)
	return gobreaker.NewCircuitBreaker[[]json.RawMessage](settings)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Configured reports whether a token is set.
func (c *Client) Configured() bool { return c.token != "" }

// State returns the breaker state.
func (c *Client) State() gobreaker.State { return c.breaker.State() }

// RunActor starts actorID with input, waits for it to finish, and returns its
// dataset items undecoded.
func (c *Client) RunActor(ctx context.Context, actorID string, input any) ([]json.RawMessage, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode actor input: %w", err)
	}

	start := time.Now()
	items, err := c.breaker.Execute(func() ([]json.RawMessage, error) {
		return c.run(ctx, actorID, body)
	})
	if err != nil {
		c.log.Error(ctx, "actor run failed",
			logger.String("actor", actorID),
			logger.Duration("took", time.Since(start)),
			logger.Error(err),
		)
		return nil, fmt.Errorf("run actor %s: %w", actorID, err)
	}

	c.log.Info(ctx, "actor run finished",
		logger.String("actor", actorID),
		logger.Int("items", len(items)),
		logger.Duration("took", time.Since(start)),
	)
	return items, nil
}

func (c *Client) run(ctx context.Context, actorID string, body []byte) ([]json.RawMessage, error) {
	// Actor ids are "user/name"; the REST path wants "user~name".
	endpoint := fmt.Sprintf(runSyncDatasetPathFmt, c.baseURL, strings.ReplaceAll(actorID, "/", "~"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var items []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode dataset items: %w", err)
	}
	return items, nil
}
