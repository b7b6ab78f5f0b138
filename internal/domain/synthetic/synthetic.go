// Package synthetic creates scraping tasks for miners by picking a random
// well-reviewed place.
package synthetic

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/spotcheck/internal/domain/model"
	"github.com/okian/spotcheck/pkg/logger"
	"github.com/okian/spotcheck/pkg/metrics"
	"github.com/okian/spotcheck/pkg/retry"
)

// Default synthetic task configuration constants.
const (
	defaultMinReviews  = 20
	defaultMaxItems    = 20
	defaultMaxAttempts = 10
	defaultRetryDelay  = time.Second
	defaultLanguage    = "en"
	defaultSort        = "newest"
	defaultTimeoutSec  = 120
	resultTypePlace    = "place"
)

// ErrNoEligiblePlace is returned when a search yields no place with enough reviews.
var ErrNoEligiblePlace = errors.New("no eligible places found")

// Place is a search hit.
type Place struct {
	Type        string
	PlaceID     string
	FID         string
	Name        string
	ReviewCount int
}

// Searcher finds places matching a free-text query.
type Searcher interface {
	SearchPlaces(ctx context.Context, query, language string, maxItems int) ([]Place, error)
}

// Option applies a configuration option to the Creator.
type Option func(*Creator)

// WithPlaceTypes sets the place kinds to search for.
func WithPlaceTypes(types []string) Option {
	return func(c *Creator) {
		if len(types) > 0 {
			c.placeTypes = types
		}
	}
}

// WithMinReviews sets the review count a place needs to be eligible.
func WithMinReviews(n int) Option {
	return func(c *Creator) {
		if n >= 0 {
			c.minReviews = n
		}
	}
}

// WithMaxItems caps the number of search results requested.
func WithMaxItems(n int) Option {
	return func(c *Creator) {
		if n > 0 {
			c.maxItems = n
		}
	}
}

// WithSynapseParams sets the parameters handed to miners with each task.
func WithSynapseParams(p model.SynapseParams) Option {
	return func(c *Creator) {
		c.params = p
	}
}

// WithRetry sets the attempt budget and delay between search attempts.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Creator) {
		if attempts > 0 {
			c.retry.MaxAttempts = attempts
		}
		if delay > 0 {
			c.retry.BaseDelay = delay
			c.retry.MaxDelay = delay
		}
	}
}

// WithSeed makes location and place choice reproducible.
func WithSeed(seed int64) Option {
	return func(c *Creator) {
		c.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // task choice is not security sensitive
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Creator) {
		if l != nil {
			c.log = l
		}
	}
}

// Creator builds synthetic tasks.
type Creator struct {
	searcher   Searcher
	placeTypes []string
	minReviews int
	maxItems   int
	params     model.SynapseParams
	retry      retry.Config
	log        logger.Logger
	now        func() time.Time

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewCreator creates a Creator backed by s.
func NewCreator(s Searcher, opts ...Option) *Creator {
	c := &Creator{
		searcher:   s,
		placeTypes: DefaultPlaceTypes,
		minReviews: defaultMinReviews,
		maxItems:   defaultMaxItems,
		params: model.SynapseParams{
			Language: defaultLanguage,
			Sort:     defaultSort,
			Timeout:  defaultTimeoutSec,
		},
		retry: retry.Config{
			MaxAttempts: defaultMaxAttempts,
			BaseDelay:   defaultRetryDelay,
			MaxDelay:    defaultRetryDelay,
		},
		now: time.Now,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // see WithSeed
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("synthetic")
	}
	c.retry.Logger = c.log
	return c
}

// SynapseParams returns the parameters handed to miners.
func (c *Creator) SynapseParams() model.SynapseParams { return c.params }

// Create picks an eligible place, retrying with fresh random queries.
func (c *Creator) Create(ctx context.Context) (model.SyntheticTask, error) {
	start := c.now()
	c.log.Info(ctx, "starting synthetic task creation")

	var place Place
	err := c.retry.Do(ctx, "find eligible place", func(ctx context.Context) error {
		p, err := c.EligiblePlace(ctx)
		if err != nil {
			return err
		}
		place = p
		return nil
	})
	took := c.now().Sub(start)
	if err != nil {
		metrics.RecordSyntheticTask("failed")
		c.log.Error(ctx, "synthetic task creation failed", logger.Duration("took", took), logger.Error(err))
		return model.SyntheticTask{}, fmt.Errorf("create synthetic task: %w", err)
	}

	metrics.RecordSyntheticTask("success")
	c.log.Info(ctx, "synthetic task created",
		logger.String("fid", place.FID),
		logger.String("placeId", place.PlaceID),
		logger.Duration("took", took),
	)
	return model.SyntheticTask{
		DataID:        place.FID,
		ID:            place.PlaceID,
		SynapseParams: c.params,
		Timestamp:     model.Timestamp(c.now()),
		TotalTime:     took.Seconds(),
	}, nil
}

// EligiblePlace runs one random search and picks a random place with enough reviews.
func (c *Creator) EligiblePlace(ctx context.Context) (Place, error) {
	location, placeType := c.pickQuery()
	query := placeType + " in " + location
	c.log.Info(ctx, "searching places", logger.String("query", query))

	results, err := c.searcher.SearchPlaces(ctx, query, c.params.Language, c.maxItems)
	if err != nil {
		return Place{}, fmt.Errorf("search %q: %w", query, err)
	}

	var eligible []Place
	places := 0
	for _, p := range results {
		if p.Type != resultTypePlace {
			continue
		}
		places++
		if p.ReviewCount >= c.minReviews {
			eligible = append(eligible, p)
		}
	}
	c.log.Info(ctx, "search results",
		logger.Int("places", places),
		logger.Int("eligible", len(eligible)),
		logger.Int("minReviews", c.minReviews),
	)
	if len(eligible) == 0 {
		return Place{}, fmt.Errorf("%w for %s", ErrNoEligiblePlace, query)
	}

	c.mu.Lock()
	chosen := eligible[c.rng.Intn(len(eligible))]
	c.mu.Unlock()

	c.log.Info(ctx, "selected place",
		logger.String("name", chosen.Name),
		logger.String("fid", chosen.FID),
		logger.Int("reviewCount", chosen.ReviewCount),
	)
	return chosen, nil
}

func (c *Creator) pickQuery() (location, placeType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	city := usCities[c.rng.Intn(len(usCities))]
	return city.City + ", " + city.State, c.placeTypes[c.rng.Intn(len(c.placeTypes))]
}
