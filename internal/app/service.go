// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/alie/internal/domain/adaptation"
	"github.com/okian/alie/internal/domain/features"
	"github.com/okian/alie/internal/domain/inference"
	"github.com/okian/alie/internal/domain/learner"
	"github.com/okian/alie/internal/domain/model"
	"github.com/okian/alie/internal/domain/scoring"
	"github.com/okian/alie/models"
	"github.com/okian/alie/pkg/logger"
	"github.com/okian/alie/pkg/metrics"
	"github.com/okian/alie/pkg/requestid"
)

// Health states.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Error kinds used as metric labels.
const (
	ErrorKindValidation  = "validation"
	ErrorKindUnavailable = "unavailable"
	ErrorKindInference   = "inference"
)

const (
	scoreDecimals = 4
	timeDecimals  = 2
)

// HealthStatus is the liveness report.
type HealthStatus struct {
	Status       string `json:"status"`
	ModelsLoaded bool   `json:"models_loaded"`
	Version      string `json:"version"`
}

// Service implements the API dependencies for the inference service.
type Service struct {
	mu sync.RWMutex

	// Core components
	models       inference.Models
	orchestrator *inference.Orchestrator

	// Configuration
	modelsFS fs.FS
	version  string

	// State
	started   bool
	startedAt time.Time
	served    atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithVersion sets the version reported by Health.
func WithVersion(v string) Option {
	return func(s *Service) {
		if v != "" {
			s.version = v
		}
	}
}

// WithModelsFS sets the filesystem the model artifacts are loaded from.
func WithModelsFS(fsys fs.FS) Option {
	return func(s *Service) {
		if fsys != nil {
			s.modelsFS = fsys
		}
	}
}

// WithModels injects an already loaded model set. Start will not load artifacts.
func WithModels(m inference.Models) Option {
	return func(s *Service) {
		if m != nil {
			s.models = m
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		modelsFS: models.FS,
		version:  "1.0.0",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads the models once. A failed load leaves the service running in
// degraded mode rather than returning an error.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.logger.Info(ctx, "starting inference service...", logger.String("version", s.version))

	if s.models == nil {
		s.models = scoring.Load(ctx, s.modelsFS, scoring.WithLogger(s.logger))
	}
	s.orchestrator = inference.New(s.models)

	ready := s.orchestrator.Ready()
	metrics.UpdateModelsLoaded(ready)
	if !ready {
		s.logger.Warn(ctx, "models not loaded; serving in degraded mode")
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "inference service started", logger.Bool("models_loaded", ready))

	return nil
}

// Stop marks the service as stopped. Models stay in memory but predictions
// fail with inference.ErrServiceUnavailable until Start is called again.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.started = false
	s.logger.Info(context.Background(), "inference service stopped")
}

// Ready reports whether predictions can be served.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && s.orchestrator.Ready()
}

// Health reports liveness. It never fails; missing models show as degraded.
func (s *Service) Health() HealthStatus {
	ready := s.Ready()
	status := StatusHealthy
	if !ready {
		status = StatusDegraded
	}
	return HealthStatus{Status: status, ModelsLoaded: ready, Version: s.version}
}

// Version returns the configured service version.
func (s *Service) Version() string {
	return s.version
}

// PredictJSON validates a raw request body and scores it.
func (s *Service) PredictJSON(ctx context.Context, raw []byte) (model.PredictionResult, error) {
	snap, err := learner.ParseJSON(raw)
	if err != nil {
		s.rejectInput(ctx, err)
		return model.PredictionResult{}, err
	}
	return s.predict(ctx, snap)
}

// Predict validates a snapshot and scores it.
func (s *Service) Predict(ctx context.Context, snap learner.Snapshot) (model.PredictionResult, error) {
	if err := snap.Validate(); err != nil {
		s.rejectInput(ctx, err)
		return model.PredictionResult{}, err
	}
	return s.predict(ctx, snap)
}

func (s *Service) predict(ctx context.Context, snap learner.Snapshot) (model.PredictionResult, error) {
	start := time.Now()
	ctx, id := requestid.Ensure(ctx)
	log := s.log()

	s.mu.RLock()
	orch, running := s.orchestrator, s.started
	s.mu.RUnlock()

	if !running {
		s.failed.Add(1)
		metrics.RecordPredictionError(ErrorKindUnavailable)
		log.Warn(ctx, "prediction refused; service not started",
			logger.String("user_id", snap.UserID),
			logger.String("topic_id", snap.TopicID),
		)
		return model.PredictionResult{}, inference.ErrServiceUnavailable
	}

	vector, derived := features.Build(snap)
	scores, err := orch.Run(ctx, vector)
	if err != nil {
		s.failed.Add(1)
		kind := ErrorKindInference
		if errors.Is(err, inference.ErrServiceUnavailable) {
			kind = ErrorKindUnavailable
		}
		metrics.RecordPredictionError(kind)
		log.Error(ctx, "prediction failed",
			logger.String("user_id", snap.UserID),
			logger.String("topic_id", snap.TopicID),
			logger.String("kind", kind),
			logger.Error(err),
		)
		return model.PredictionResult{}, err
	}

	// Weak and the foundation rule read the published four-decimal gap, so a
	// raw 0.75004 is reported as 0.75 and does not trigger add_foundation_resources.
	gap := round(scores.GapScore, scoreDecimals)
	rank := round(scores.RankingScore, scoreDecimals)
	weak := model.IsWeak(gap)
	action, rule := adaptation.Decide(adaptation.Signals{
		GapScore:        gap,
		DifficultyLevel: scores.DifficultyLevel,
		FailureRate:     derived.FailureRate,
		AccuracyRate:    derived.AccuracyRate,
	})

	elapsed := round(float64(time.Since(start).Microseconds())/1000.0, timeDecimals)
	result := model.PredictionResult{
		SkillGap:         model.SkillGap{GapScore: gap, Weak: weak},
		Difficulty:       model.Difficulty{DifficultyLevel: scores.DifficultyLevel},
		Ranking:          model.Ranking{RankingScore: rank},
		Adaptation:       model.Adaptation{Action: action},
		RequestID:        id,
		PredictionTimeMS: elapsed,
	}

	s.served.Add(1)
	metrics.RecordPrediction(string(action), string(scores.DifficultyLevel))
	metrics.RecordPredictionLatency(elapsed)
	metrics.RecordRuleHit(rule)
	if weak {
		metrics.RecordWeakPrediction()
	}

	log.Info(ctx, "prediction served",
		logger.String("user_id", snap.UserID),
		logger.String("topic_id", snap.TopicID),
		logger.Float64("gap_score", gap),
		logger.Bool("weak", weak),
		logger.String("difficulty", string(scores.DifficultyLevel)),
		logger.Float64("ranking_score", rank),
		logger.String("action", string(action)),
		logger.String("rule", rule),
		logger.Float64("prediction_time_ms", elapsed),
	)

	return result, nil
}

func (s *Service) rejectInput(ctx context.Context, err error) {
	s.rejected.Add(1)
	metrics.RecordPredictionError(ErrorKindValidation)

	var verr *learner.ValidationError
	if errors.As(err, &verr) {
		for _, v := range verr.Violations {
			metrics.RecordValidationViolation(v.Constraint)
		}
		s.log().Debug(ctx, "snapshot rejected", logger.Int("violations", len(verr.Violations)))
		return
	}
	s.log().Debug(ctx, "snapshot rejected", logger.Error(err))
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.logger == nil {
		return logger.Get()
	}
	return s.logger
}

// Models describes the loaded models, empty when degraded.
func (s *Service) Models() []scoring.ModelInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.models.(interface{ Info() []scoring.ModelInfo }); ok {
		return r.Info()
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	ready := s.Ready()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":             s.started,
		"version":             s.version,
		"models_loaded":       ready,
		"predictions_served":  s.served.Load(),
		"prediction_failures": s.failed.Load(),
		"rejected_inputs":     s.rejected.Load(),
	}

	if s.started {
		stats["uptime_seconds"] = math.Round(time.Since(s.startedAt).Seconds())
	}
	if r, ok := s.models.(interface{ Err() error }); ok && r.Err() != nil {
		stats["models_error"] = r.Err().Error()
	}

	return stats
}

func round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}
