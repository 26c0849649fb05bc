package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/okian/alie/internal/adapters/http/api"
	"github.com/okian/alie/internal/adapters/http/swagger"
	"github.com/okian/alie/internal/adapters/ratelimit"
	app "github.com/okian/alie/internal/app"
	"github.com/okian/alie/internal/config"
	"github.com/okian/alie/internal/observability"
	"github.com/okian/alie/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	redisPingTimeout  = 2 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP inference service (default)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	loggerInstance := logger.Get()

	shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		ServiceName: "alie",
		Version:     cfg.Version,
		Endpoint:    cfg.TracingEndpoint,
		Insecure:    cfg.TracingInsecure,
		SampleRatio: cfg.TracingSampleRatio,
	}, observability.WithLogger(logger.Named("tracing")))
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			loggerInstance.Error(ctx, "tracer shutdown failed", logger.Error(err))
		}
	}()

	// Create and start the service with configuration options
	svc := app.New(serviceOptions(cfg)...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	limiter, closer, err := newLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			loggerInstance.Error(ctx, "rate limiter close failed", logger.Error(err))
		}
	}()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register the OpenAPI document and ReDoc page
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc,
		api.WithAPIKeys(cfg.APIKeyList()),
		api.WithCORSOrigins(cfg.CORSOriginList()),
		api.WithLimiter(limiter),
	)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Handler(mux),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.Bool("auth", len(cfg.APIKeyList()) > 0),
			logger.Bool("rate_limit", limiter != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			return err
		}
	}
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
	return nil
}

func serviceOptions(cfg *config.Config) []app.Option {
	opts := []app.Option{
		app.WithLogger(logger.Named("service")),
		app.WithVersion(cfg.Version),
	}
	if cfg.ModelsDir != "" {
		opts = append(opts, app.WithModelsFS(os.DirFS(cfg.ModelsDir)))
	}
	return opts
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newLimiter builds the configured limiter. A nil limiter disables rate limiting.
func newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, io.Closer, error) {
	if !cfg.RateLimitEnabled {
		return nil, nopCloser{}, nil
	}

	opts := []ratelimit.Option{
		ratelimit.WithLimit(cfg.RateLimitRequests),
		ratelimit.WithWindow(cfg.RateLimitWindow()),
	}

	switch cfg.RateLimitBackend {
	case config.RateLimitBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			// Limiter errors fail open.
			logger.Get().Warn(ctx, "redis unreachable; requests will not be limited until it recovers",
				logger.String("addr", cfg.RedisAddr), logger.Error(err))
		}
		opts = append(opts, ratelimit.WithKeyPrefix(cfg.RedisKeyPrefix))
		return ratelimit.NewRedis(client, opts...), client, nil

	case config.RateLimitBackendMemory:
		m := ratelimit.NewMemory(opts...)
		go m.Run(ctx)
		return m, nopCloser{}, nil

	default:
		return nil, nil, errors.New("unknown rate_limit_backend " + cfg.RateLimitBackend)
	}
}
