// Package observability configures OpenTelemetry tracing for the service.
package observability

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/okian/alie/pkg/logger"
)

// ErrTracing is returned when the tracer provider cannot be built.
var ErrTracing = errors.New("tracing setup failed")

const defaultServiceName = "alie"

// TracingConfig selects the exporter and sampling.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Version     string
	// Endpoint is an OTLP/HTTP host:port. Empty exports to stdout.
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

// Option configures SetupTracing.
type Option func(*setupOptions)

type setupOptions struct {
	exporter sdktrace.SpanExporter
	log      logger.Logger
}

// WithExporter replaces the exporter chosen from the config.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(o *setupOptions) {
		o.exporter = exp
	}
}

// WithLogger sets the logger used to report setup.
func WithLogger(l logger.Logger) Option {
	return func(o *setupOptions) {
		o.log = l
	}
}

// SetupTracing installs a global tracer provider and W3C propagators. When
// tracing is disabled it installs nothing and returns a no-op shutdown.
func SetupTracing(ctx context.Context, cfg TracingConfig, opts ...Option) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}

	o := setupOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
			attribute.String("service.component", "inference"),
		),
	)
	if err != nil && o.log != nil {
		o.log.Warn(ctx, "otel resource init failed (continuing)", logger.Error(err))
	}

	exporter := o.exporter
	if exporter == nil {
		exporter, err = buildExporter(ctx, cfg)
		if err != nil {
			return noop, errors.Join(ErrTracing, err)
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(clampRatio(cfg.SampleRatio)))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if o.log != nil {
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "stdout"
		}
		o.log.Info(ctx, "otel tracing initialized",
			logger.String("service", serviceName),
			logger.String("endpoint", endpoint),
			logger.Float64("sample_ratio", clampRatio(cfg.SampleRatio)),
		)
	}
	return tp.Shutdown, nil
}

func buildExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}
