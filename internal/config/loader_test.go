package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/spotcheck/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":3002")
				convey.So(cfg.SpotCheckCount, convey.ShouldEqual, 3)
				convey.So(cfg.SynapseTimeoutSec, convey.ShouldEqual, 120.0)
				convey.So(cfg.LocalhostOnly, convey.ShouldBeTrue)
				convey.So(cfg.ApifyToken, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SPOTCHECK_ADDR", ":8080")
			_ = os.Setenv("SPOTCHECK_SPOT_CHECK_COUNT", "5")
			_ = os.Setenv("SPOTCHECK_SYNAPSE_TIMEOUT_SEC", "90.5")
			_ = os.Setenv("SPOTCHECK_LOCALHOST_ONLY", "false")
			_ = os.Setenv("SPOTCHECK_PLACE_TYPES", "museum, bakery ,,zoo")
			_ = os.Setenv("SPOTCHECK_BREAKER_MIN_REQUESTS", "7")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.SpotCheckCount, convey.ShouldEqual, 5)
				convey.So(cfg.SynapseTimeoutSec, convey.ShouldEqual, 90.5)
				convey.So(cfg.LocalhostOnly, convey.ShouldBeFalse)
				convey.So(cfg.PlaceTypes, convey.ShouldResemble, []string{"museum", "bakery", "zoo"})
				convey.So(cfg.BreakerMinRequests, convey.ShouldEqual, uint32(7))
			})
		})

		convey.Convey("When tokens are only set under their conventional names", func() {
			_ = os.Setenv("APIFY_TOKEN", "apify-secret")
			_ = os.Setenv("PLATFORM_TOKEN", "platform-secret")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they should be picked up", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ApifyToken, convey.ShouldEqual, "apify-secret")
				convey.So(cfg.DigestToken, convey.ShouldEqual, "platform-secret")
			})

			convey.Convey("And prefixed tokens should win", func() {
				_ = os.Setenv("SPOTCHECK_APIFY_TOKEN", "prefixed")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ApifyToken, convey.ShouldEqual, "prefixed")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
# comments are fine
addr: ":9090"
spot_check_count: 4
digest_queue_size: 64
place_types:
  - cafe
  - library
`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SPOTCHECK_CONFIG", tmpFile)
			_ = os.Setenv("SPOTCHECK_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.SpotCheckCount, convey.ShouldEqual, 4)
				convey.So(cfg.DigestQueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.PlaceTypes, convey.ShouldResemble, []string{"cafe", "library"})
				convey.So(cfg.VerifyTimeoutSec, convey.ShouldEqual, 90)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile("addr: [unclosed")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SPOTCHECK_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SPOTCHECK_CONFIG", "/nonexistent/spotcheck.yaml")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("SPOTCHECK_SPOT_CHECK_COUNT", "three")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When spot checking is disabled", func() {
			_ = os.Setenv("SPOTCHECK_SPOT_CHECK_COUNT", "0")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load with an empty sample size", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.SpotCheckCount, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the spot check count is negative", func() {
			_ = os.Setenv("SPOTCHECK_SPOT_CHECK_COUNT", "-1")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "spot_check_count")
			})
		})

		convey.Convey("When the synapse timeout is not positive", func() {
			_ = os.Setenv("SPOTCHECK_SYNAPSE_TIMEOUT_SEC", "0")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "synapse_timeout_sec")
			})
		})

		convey.Convey("When addr is empty in the file", func() {
			tmpFile := createTempConfigFile(`addr: ""`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SPOTCHECK_CONFIG", tmpFile)

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"SPOTCHECK_CONFIG",
		"SPOTCHECK_ADDR",
		"SPOTCHECK_SPOT_CHECK_COUNT",
		"SPOTCHECK_SYNAPSE_TIMEOUT_SEC",
		"SPOTCHECK_LOCALHOST_ONLY",
		"SPOTCHECK_PLACE_TYPES",
		"SPOTCHECK_BREAKER_MIN_REQUESTS",
		"SPOTCHECK_APIFY_TOKEN",
		"APIFY_TOKEN",
		"PLATFORM_TOKEN",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "spotcheck-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
