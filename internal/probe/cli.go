package probe

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/spotcheck/pkg/logger"
)

// SetupLogging sends probe logs to stdout and, when logFile is set, to that
// file as well. The returned closer releases the file.
func SetupLogging(logFile string, format string) (io.Closer, error) {
	if logFile == "" {
		return io.NopCloser(nil), logger.Init(logger.WithFormat(format))
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithFormat(format), logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}

// ShowHelp prints usage information for the probe.
func ShowHelp() {
	os.Stdout.WriteString(`Spotcheck Score Probe
=====================

Sends generated cohorts to a running validator and checks each scoring
response: one score per miner, scores in [0, 1] rounded to 4 decimals,
rejected miners at zero, and statistics consistent with the scores.

Generated reviews are fabricated, so against a live actor runner honest
miners are expected to fail the spot check. Point the validator at a stub
runner (SPOTCHECK_APIFY_BASE_URL) to exercise the passing path.

Usage:
  go run ./cmd/score-probe [options]

Options:
  -url string         Base URL of the validator (default "http://localhost:3002")
  -cohorts int        Number of scoring requests (default 20)
  -miners int         Miners per cohort (default 8)
  -reviews int        Max reviews per miner (default 10)
  -workers int        Concurrent requests (default 4)
  -timeout duration   HTTP request timeout (default 3m)
  -synapse float      synapseTimeout sent with each request (default: server's)
  -seed int           Generator seed (default: time based)
  -output string      Write generated cohorts to this file
  -log string         Also write logs to this file
  -verbose            Log every scored cohort
  -help               Show this help message

Examples:
  go run ./cmd/score-probe -cohorts 100 -workers 8
  go run ./cmd/score-probe -seed 42 -output cohorts.json
`)
}
