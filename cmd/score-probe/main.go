package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/spotcheck/internal/probe"
)

// Default configuration constants.
const (
	defaultCohorts    = 20
	defaultMiners     = 8
	defaultReviews    = 10
	defaultWorkers    = 4
	defaultTimeout    = 3 * time.Minute
	defaultRunTimeout = 30 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:3002", "Base URL of the validator")
		cohorts   = flag.Int("cohorts", defaultCohorts, "Number of scoring requests")
		miners    = flag.Int("miners", defaultMiners, "Miners per cohort")
		reviews   = flag.Int("reviews", defaultReviews, "Max reviews per miner")
		workers   = flag.Int("workers", defaultWorkers, "Concurrent requests")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		synapse   = flag.Float64("synapse", 0, "synapseTimeout sent with each request")
		seed      = flag.Int64("seed", 0, "Generator seed")
		output    = flag.String("output", "", "Write generated cohorts to this file")
		logFile   = flag.String("log", "", "Also write logs to this file")
		logFormat = flag.String("log-format", "text", "Log format: text or json")
		verbose   = flag.Bool("verbose", false, "Log every scored cohort")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp()
		return
	}

	closer, err := probe.SetupLogging(*logFile, *logFormat)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &probe.Config{
		BaseURL:         *baseURL,
		Cohorts:         *cohorts,
		Miners:          *miners,
		ReviewsPerMiner: *reviews,
		Workers:         max(*workers, 1),
		Timeout:         *timeout,
		SynapseTimeout:  *synapse,
		OutputFile:      *output,
		Verbose:         *verbose,
		Seed:            *seed,
	}

	if _, err := probe.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		stop()
		cancel()
		os.Exit(1)
	}
}
