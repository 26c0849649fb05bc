// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/alie/internal/adapters/ratelimit"
	service "github.com/okian/alie/internal/app"
	"github.com/okian/alie/internal/domain/learner"
	"github.com/okian/alie/internal/domain/model"
	"github.com/okian/alie/pkg/logger"
	"github.com/okian/alie/pkg/requestid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// PredictJSON validates a raw learner snapshot and scores it.
	PredictJSON(ctx context.Context, raw []byte) (model.PredictionResult, error)

	// Health and Ready expose model loading state.
	Health() service.HealthStatus
	Ready() bool
}

// Server wires HTTP routes for the business API.
type Server struct {
	predictHandler *PredictHandler
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler

	apiKeys     []string
	corsOrigins []string
	limiter     ratelimit.Limiter
	logger      logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAPIKeys enables X-API-Key authentication with the given keys.
func WithAPIKeys(keys []string) Option {
	return func(s *Server) {
		s.apiKeys = keys
	}
}

// WithCORSOrigins sets the allowed origins. Empty allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithLimiter enables rate limiting on protected routes.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// WithLogger sets the access and error logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler: NewHealthHandler(deps),
		statsHandler:  NewStatsHandler(statsProvider),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("http")
	}
	s.predictHandler = NewPredictHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/readyz", MetricsMiddleware(s.healthHandler.HandleReady, "readyz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.protect(s.statsHandler.HandleStats), "stats"))
	mux.HandleFunc("/predict", MetricsMiddleware(s.protect(s.predictHandler.HandlePredict), "predict"))

	// Root catches everything else
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, codeNotFound, nil)
	})
}

// protect applies API key authentication and rate limiting.
func (s *Server) protect(next http.HandlerFunc) http.HandlerFunc {
	return APIKeyMiddleware(RateLimitMiddleware(next, s.limiter, s.logger), s.apiKeys, s.logger)
}

// Handler wraps mux with the middleware shared by every route.
func (s *Server) Handler(mux http.Handler) http.Handler {
	h := CORSMiddleware(mux, s.corsOrigins)
	h = AccessLogMiddleware(h, s.logger)
	h = RequestIDMiddleware(h)
	h = RecoverMiddleware(h, s.logger)
	return otelhttp.NewHandler(h, "alie.http")
}

type errorResponse struct {
	Error      string              `json:"error"`
	Detail     string              `json:"detail"`
	RequestID  string              `json:"request_id,omitempty"`
	Violations []learner.Violation `json:"violations,omitempty"`
}

// Error codes reported in the error field of error bodies.
const (
	codeBadRequest       = "BadRequest"
	codeValidation       = "ValidationError"
	codeUnauthorized     = "Unauthorized"
	codeTooManyRequests  = "TooManyRequests"
	codeUnavailable      = "ServiceUnavailable"
	codeInternal         = "InternalServerError"
	codeMethodNotAllowed = "MethodNotAllowed"
	codeNotFound         = "NotFound"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = detail(err)
	}
	id, _ := requestid.From(r.Context())
	writeJSON(w, status, errorResponse{Error: code, Detail: msg, RequestID: id})
}

func writeViolations(w http.ResponseWriter, r *http.Request, violations []learner.Violation) {
	id, _ := requestid.From(r.Context())
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
		Error:      codeValidation,
		Detail:     ErrValidation.Error(),
		RequestID:  id,
		Violations: violations,
	})
}
