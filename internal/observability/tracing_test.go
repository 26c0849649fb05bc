package observability_test

import (
	"context"
	"testing"

	"github.com/okian/alie/internal/domain/features"
	"github.com/okian/alie/internal/domain/inference"
	"github.com/okian/alie/internal/domain/scoring"
	"github.com/okian/alie/internal/observability"
	"github.com/okian/alie/models"
	. "github.com/smartystreets/goconvey/convey"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// flush exports buffered spans without resetting the in-memory exporter.
func flush(ctx context.Context) error {
	tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	if !ok {
		return nil
	}
	return tp.ForceFlush(ctx)
}

func TestSetupTracing(t *testing.T) {
	ctx := context.Background()

	Convey("Given tracing is disabled", t, func() {
		before := otel.GetTracerProvider()
		shutdown, err := observability.SetupTracing(ctx, observability.TracingConfig{})

		Convey("Then nothing is installed", func() {
			So(err, ShouldBeNil)
			So(shutdown(ctx), ShouldBeNil)
			So(otel.GetTracerProvider(), ShouldEqual, before)
		})
	})

	Convey("Given tracing with an in-memory exporter", t, func() {
		exp := tracetest.NewInMemoryExporter()
		shutdown, err := observability.SetupTracing(ctx,
			observability.TracingConfig{Enabled: true, Version: "test", SampleRatio: 1},
			observability.WithExporter(exp),
		)
		So(err, ShouldBeNil)

		Convey("When an inference run completes", func() {
			o := inference.New(scoring.Load(ctx, models.FS))
			_, runErr := o.Run(ctx, features.Vector{})
			So(runErr, ShouldBeNil)
			So(flush(ctx), ShouldBeNil)
			defer func() { _ = shutdown(ctx) }()

			Convey("Then the run and each model call are exported", func() {
				names := map[string]int{}
				for _, s := range exp.GetSpans() {
					names[s.Name]++
				}
				So(names["inference.run"], ShouldEqual, 1)
				So(names["inference.model"], ShouldEqual, 3)
			})
		})
	})

	Convey("Given a sample ratio outside the unit interval", t, func() {
		exp := tracetest.NewInMemoryExporter()
		shutdown, err := observability.SetupTracing(ctx,
			observability.TracingConfig{Enabled: true, SampleRatio: -3},
			observability.WithExporter(exp),
		)
		So(err, ShouldBeNil)
		_, span := otel.Tracer("test").Start(ctx, "dropped")
		span.End()
		So(flush(ctx), ShouldBeNil)
		So(shutdown(ctx), ShouldBeNil)

		Convey("Then it is clamped and nothing is sampled", func() {
			So(exp.GetSpans(), ShouldBeEmpty)
		})
	})
}
