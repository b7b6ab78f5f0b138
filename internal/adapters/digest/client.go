// Package digest posts validated miner submissions to the digestion platform.
package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/spotcheck/internal/domain/model"
	"github.com/okian/spotcheck/pkg/logger"
	"github.com/okian/spotcheck/pkg/metrics"
)

// Default client configuration constants.
const (
	DefaultURL         = "https://oneoneone.io/api/digest"
	defaultHTTPTimeout = 30 * time.Second
)

var (
	// ErrUnexpectedStatus is returned when the platform answers anything but 200.
	ErrUnexpectedStatus = errors.New("unexpected digestion response status")
)

type payload struct {
	Type     string         `json:"type"`
	MinerUID model.MinerUID `json:"miner_uid"`
	Data     []model.Review `json:"data"`
}

// Client sends digestion jobs. It satisfies the worker Sender contract.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	log        logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithURL overrides the digestion endpoint.
func WithURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.url = u
		}
	}
}

// WithToken sets the platform bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout bounds a single request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
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
		url:        DefaultURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("digest")
	}
	return c
}

// Send posts one miner's reviews. Without a token the job is skipped and nil
// is returned.
func (c *Client) Send(ctx context.Context, job model.DigestJob) error {
	uid := logger.String("minerUID", job.MinerUID.String())
	if c.token == "" {
		metrics.RecordDigestion("skipped")
		c.log.Error(ctx, "platform token is not set, skipping digestion request", uid)
		return nil
	}

	body, err := json.Marshal(payload{Type: job.DatasetType, MinerUID: job.MinerUID, Data: job.Reviews})
	if err != nil {
		metrics.RecordDigestion("failed")
		return fmt.Errorf("encode digestion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		metrics.RecordDigestion("failed")
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordDigestion("failed")
		return fmt.Errorf("send for digestion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		metrics.RecordDigestion("failed")
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	metrics.RecordDigestion("sent")
	c.log.Info(ctx, "sent for digestion successfully", uid, logger.Int("reviews", len(job.Reviews)))
	return nil
}
