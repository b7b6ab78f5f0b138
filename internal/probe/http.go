package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/spotcheck/pkg/logger"
)

// Client posts cohorts to the validator.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// Health reports whether GET /health answered with 200.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connect to validator: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// Score posts one cohort and decodes the response.
func (c *Client) Score(ctx context.Context, cohort Cohort) (Result, int, error) {
	body, err := json.Marshal(cohort)
	if err != nil {
		return Result{}, 0, fmt.Errorf("marshal cohort: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score-responses", bytes.NewReader(body))
	if err != nil {
		return Result{}, 0, fmt.Errorf("build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, 0, fmt.Errorf("post cohort: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, resp.StatusCode, fmt.Errorf("read score response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, resp.StatusCode, fmt.Errorf("score returned status %d: %s", resp.StatusCode, raw)
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return Result{}, resp.StatusCode, fmt.Errorf("decode score response: %w", err)
	}
	return res, resp.StatusCode, nil
}

// submitCohorts scores cohorts with cfg.Workers requests in flight and
// checks every response.
func submitCohorts(ctx context.Context, cfg *Config, client *Client, cohorts []Cohort, stats *Stats) {
	log := logger.Get().Named("probe")
	log.Info(ctx, "submitting cohorts", logger.Int("cohorts", len(cohorts)), logger.Int("workers", cfg.Workers))

	var (
		submitted  int64
		scored     int64
		failed     int64
		violations int64
		passed     int64
		rejected   int64
	)

	work := make(chan Cohort, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cohort := range work {
				atomic.AddInt64(&submitted, 1)
				start := time.Now()
				res, status, err := client.Score(ctx, cohort)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					log.Warn(ctx, "cohort failed",
						logger.String("fid", cohort.FID),
						logger.Int("status", status),
						logger.Error(err))
					continue
				}
				atomic.AddInt64(&scored, 1)

				problems := Check(cohort, res)
				atomic.AddInt64(&violations, int64(len(problems)))
				for _, p := range problems {
					log.Error(ctx, "invariant violated", logger.String("fid", cohort.FID), logger.Error(p))
				}
				for _, d := range res.DetailedResults {
					if d.PassedValidation {
						atomic.AddInt64(&passed, 1)
					} else {
						atomic.AddInt64(&rejected, 1)
					}
				}
				if cfg.Verbose {
					log.Info(ctx, "cohort scored",
						logger.String("fid", cohort.FID),
						logger.Float64("mean", res.Statistics.Mean),
						logger.Duration("took", time.Since(start)))
				}
			}
		}()
	}

	go func() {
		defer close(work)
		for _, c := range cohorts {
			select {
			case <-ctx.Done():
				return
			case work <- c:
			}
		}
	}()
	wg.Wait()

	stats.CohortsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.CohortsScored = int(atomic.LoadInt64(&scored))
	stats.CohortsFailed = int(atomic.LoadInt64(&failed))
	stats.Violations = int(atomic.LoadInt64(&violations))
	stats.MinersPassed = int(atomic.LoadInt64(&passed))
	stats.MinersRejected = int(atomic.LoadInt64(&rejected))
}
