// Package inference runs the three models against one feature vector.
package inference

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/okian/alie/internal/domain/features"
	"github.com/okian/alie/internal/domain/model"
	"github.com/okian/alie/pkg/metrics"
)

const tracerName = "github.com/okian/alie/internal/domain/inference"

// Model names used for spans and metrics.
const (
	ModelSkillGap   = "skill_gap"
	ModelDifficulty = "difficulty"
	ModelRanking    = "ranking"
)

// Models is the read-only model set the orchestrator evaluates.
type Models interface {
	Ready() bool
	PredictSkillGap(v features.Vector) (float64, error)
	PredictDifficulty(v features.Vector) (model.DifficultyLevel, error)
	PredictRanking(v features.Vector) (float64, error)
}

// Scores are the raw outputs of one inference run.
type Scores struct {
	GapScore        float64
	DifficultyLevel model.DifficultyLevel
	RankingScore    float64
}

// Orchestrator evaluates the models concurrently.
type Orchestrator struct {
	models Models
	tracer trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// New builds an orchestrator over models.
func New(models Models, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		models: models,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ready reports whether the underlying models are loaded.
func (o *Orchestrator) Ready() bool {
	return o != nil && o.models != nil && o.models.Ready()
}

// Run evaluates all three models. Either every score is returned or none.
func (o *Orchestrator) Run(ctx context.Context, v features.Vector) (Scores, error) {
	if !o.Ready() {
		return Scores{}, ErrServiceUnavailable
	}

	ctx, span := o.tracer.Start(ctx, "inference.run")
	defer span.End()

	var out Scores
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return o.call(gctx, ModelSkillGap, func() error {
			gap, err := o.models.PredictSkillGap(v)
			if err != nil {
				return err
			}
			out.GapScore, err = unit(gap)
			return err
		})
	})
	g.Go(func() error {
		return o.call(gctx, ModelDifficulty, func() error {
			d, err := o.models.PredictDifficulty(v)
			if err != nil {
				return err
			}
			if !d.Valid() {
				return fmt.Errorf("unknown difficulty %q", d)
			}
			out.DifficultyLevel = d
			return nil
		})
	})
	g.Go(func() error {
		return o.call(gctx, ModelRanking, func() error {
			rank, err := o.models.PredictRanking(v)
			if err != nil {
				return err
			}
			out.RankingScore, err = unit(rank)
			return err
		})
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Scores{}, err
	}
	return out, nil
}

// call wraps one model evaluation with a span, a latency metric and panic recovery.
func (o *Orchestrator) call(ctx context.Context, name string, fn func() error) (err error) {
	_, span := o.tracer.Start(ctx, "inference.model", trace.WithAttributes(attribute.String("model", name)))
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		metrics.RecordModelLatency(name, float64(time.Since(start).Microseconds())/1000.0)
		if err != nil {
			err = fmt.Errorf("%w: %s: %v", ErrInference, name, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	return fn()
}

// unit clamps x into [0,1]. NaN is an error.
func unit(x float64) (float64, error) {
	if math.IsNaN(x) {
		return 0, fmt.Errorf("non-numeric output")
	}
	return math.Min(1, math.Max(0, x)), nil
}
