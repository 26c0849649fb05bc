package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/alie/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
				convey.So(cfg.RateLimitRequests, convey.ShouldEqual, 100)
				convey.So(cfg.RateLimitWindowSeconds, convey.ShouldEqual, 60)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("ALIE_ADDR", ":8080")
			_ = os.Setenv("ALIE_RATE_LIMIT_REQUESTS", "5")
			_ = os.Setenv("ALIE_RATE_LIMIT_ENABLED", "false")
			_ = os.Setenv("ALIE_API_KEYS", "a,b")
			_ = os.Setenv("ALIE_TRACING_SAMPLE_RATIO", "0.5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.RateLimitRequests, convey.ShouldEqual, 5)
				convey.So(cfg.RateLimitEnabled, convey.ShouldBeFalse)
				convey.So(cfg.APIKeyList(), convey.ShouldResemble, []string{"a", "b"})
				convey.So(cfg.TracingSampleRatio, convey.ShouldEqual, 0.5)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
version: "2.3.4"
models_dir: "/srv/models"
rate_limit_requests: 10
rate_limit_window_seconds: 30
rate_limit_backend: redis
redis_addr: "redis:6379"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ALIE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Version, convey.ShouldEqual, "2.3.4")
				convey.So(cfg.ModelsDir, convey.ShouldEqual, "/srv/models")
				convey.So(cfg.RateLimitRequests, convey.ShouldEqual, 10)
				convey.So(cfg.RateLimitWindowSeconds, convey.ShouldEqual, 30)
				convey.So(cfg.RateLimitBackend, convey.ShouldEqual, config.RateLimitBackendRedis)
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "redis:6379")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info") // From defaults
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
rate_limit_requests: 10
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ALIE_CONFIG", tmpFile)
			_ = os.Setenv("ALIE_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")          // Overridden by env
				convey.So(cfg.RateLimitRequests, convey.ShouldEqual, 10) // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ALIE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("ALIE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("ALIE_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("ALIE_RATE_LIMIT_REQUESTS", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When the redis backend is selected without an address", func() {
			_ = os.Setenv("ALIE_RATE_LIMIT_BACKEND", "redis")
			_ = os.Setenv("ALIE_REDIS_ADDR", "")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When loading the shipped example file", func() {
			clearConfigEnvVars()
			_ = os.Setenv("ALIE_CONFIG", "../../config.example.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it matches the built-in defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
				convey.So(cfg.RateLimitBackend, convey.ShouldEqual, config.RateLimitBackendMemory)
				convey.So(cfg.CORSOriginList(), convey.ShouldResemble, []string{"*"})
				convey.So(cfg.APIKeyList(), convey.ShouldBeEmpty)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"ALIE_CONFIG",
		"ALIE_ADDR",
		"ALIE_API_KEYS",
		"ALIE_RATE_LIMIT_REQUESTS",
		"ALIE_RATE_LIMIT_ENABLED",
		"ALIE_RATE_LIMIT_BACKEND",
		"ALIE_REDIS_ADDR",
		"ALIE_TRACING_SAMPLE_RATIO",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "alie-config-*.yaml")
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
