package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/okian/spotcheck/internal/adapters/apify"
	"github.com/okian/spotcheck/internal/adapters/digest"
	"github.com/okian/spotcheck/internal/adapters/http/api"
	"github.com/okian/spotcheck/internal/adapters/http/swagger"
	service "github.com/okian/spotcheck/internal/app"
	"github.com/okian/spotcheck/internal/config"
	"github.com/okian/spotcheck/internal/domain/model"
	"github.com/okian/spotcheck/internal/domain/preprocess"
	"github.com/okian/spotcheck/internal/domain/scoring"
	"github.com/okian/spotcheck/internal/domain/spotcheck"
	"github.com/okian/spotcheck/internal/domain/synthetic"
	"github.com/okian/spotcheck/pkg/logger"
	"github.com/okian/spotcheck/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants. Scoring waits on a full actor run, so
// writes get far more room than reads.
const (
	readTimeout               = 60 * time.Second
	writeTimeout              = 10 * time.Minute
	idleTimeout               = 120 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	syntheticRetryDelay       = time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// We collect our own runtime metrics on the custom registry.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// .env is optional; real environment variables always win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		os.Stderr.WriteString("failed to read .env: " + err.Error() + "\n")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := buildService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           buildMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "validator listening",
			logger.String("addr", cfg.Addr),
			logger.Bool("localhostOnly", cfg.LocalhostOnly),
			logger.Bool("apifyConfigured", cfg.ApifyToken != ""),
			logger.Bool("digestConfigured", cfg.DigestToken != ""),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "digestion drain incomplete", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// buildService wires the pipeline collaborators from cfg.
func buildService(cfg *config.Config, log logger.Logger) *service.Service {
	apifyClient := apify.New(
		apify.WithBaseURL(cfg.ApifyBaseURL),
		apify.WithToken(cfg.ApifyToken),
		apify.WithBreaker(apify.BreakerConfig{
			FailureRatio: cfg.BreakerFailureRatio,
			MinRequests:  cfg.BreakerMinRequests,
			OpenTimeout:  cfg.BreakerOpenTimeout(),
		}),
		apify.WithLogger(log.Named("apify")),
	)

	if cfg.SpotCheckCount == 0 {
		log.Warn(context.Background(), "spot checking disabled; valid submissions pass without cross-verification")
	}

	prepOpts := []preprocess.Option{
		preprocess.WithSpotCheckCount(cfg.SpotCheckCount),
		preprocess.WithConcurrency(cfg.PreprocessWorkers),
		preprocess.WithLogger(log.Named("preprocess")),
	}
	if cfg.RandomSeed != 0 {
		prepOpts = append(prepOpts, preprocess.WithSeed(cfg.RandomSeed))
	}

	checker := spotcheck.New(
		apify.NewSpotCheckVerifier(apifyClient, cfg.SpotCheckActor),
		spotcheck.WithTimeout(cfg.VerifyTimeout()),
		spotcheck.WithLogger(log.Named("spotcheck")),
	)

	sender := digest.New(
		digest.WithURL(cfg.DigestURL),
		digest.WithToken(cfg.DigestToken),
		digest.WithTimeout(cfg.DigestTimeout()),
		digest.WithLogger(log.Named("digest")),
	)

	params := model.SynapseParams{
		Language: cfg.SynapseLanguage,
		Sort:     cfg.SynapseSort,
		Timeout:  int(cfg.SynapseTimeoutSec),
	}

	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithPreprocessor(preprocess.New(prepOpts...)),
		service.WithChecker(checker),
		service.WithCalculator(scoring.NewCalculator(scoring.WithLogger(log.Named("scoring")))),
		service.WithDigestSender(sender),
		service.WithWorkerCount(cfg.DigestWorkerCount),
		service.WithQueueSize(cfg.DigestQueueSize),
		service.WithSynapseTimeout(cfg.SynapseTimeoutSec),
		service.WithSynapseParams(params),
	}

	// Without a token every search would fail; leave the creator unset so the
	// API reports a configuration error instead.
	if apifyClient.Configured() {
		synOpts := []synthetic.Option{
			synthetic.WithPlaceTypes(cfg.PlaceTypes),
			synthetic.WithMinReviews(cfg.MinReviewsRequired),
			synthetic.WithMaxItems(cfg.SearchMaxItems),
			synthetic.WithRetry(cfg.SyntheticMaxAttempts, syntheticRetryDelay),
			synthetic.WithSynapseParams(params),
			synthetic.WithLogger(log.Named("synthetic")),
		}
		if cfg.RandomSeed != 0 {
			synOpts = append(synOpts, synthetic.WithSeed(cfg.RandomSeed))
		}
		searcher := apify.NewPlaceSearcher(apifyClient, cfg.PlaceSearchActor)
		opts = append(opts, service.WithCreator(synthetic.NewCreator(searcher, synOpts...)))
	}

	return service.New(opts...)
}

// buildMux registers the API and documentation routes.
func buildMux(ctx context.Context, cfg *config.Config, svc *service.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc,
		api.WithLocalhostOnly(cfg.LocalhostOnly),
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		api.WithLogger(logger.Get().Named("api")),
	).Register(ctx, mux)
	return mux
}

func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes gauges that are only sampled, not pushed.
func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workerCount, ok := stats["workerCount"].(int); ok && stats["digestionEnabled"] == true {
		metrics.UpdateWorkerActiveCount(workerCount)
	}
}
