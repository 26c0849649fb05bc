// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"crypto/subtle"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/okian/alie/internal/adapters/ratelimit"
	"github.com/okian/alie/pkg/logger"
	"github.com/okian/alie/pkg/metrics"
	"github.com/okian/alie/pkg/requestid"
)

// HTTP status code constants.
const (
	statusBadRequest      = 400
	statusNotFound        = 404
	statusTooManyRequests = 429
	statusInternalError   = 500
)

// Response headers set by the middleware.
const (
	headerProcessTime        = "X-Process-Time-Ms"
	headerRateLimitLimit     = "X-RateLimit-Limit"
	headerRateLimitRemaining = "X-RateLimit-Remaining"
	headerRateLimitReset     = "X-RateLimit-Reset"
	headerRetryAfter         = "Retry-After"
)

var exposedHeaders = strings.Join([]string{
	requestid.Header, headerProcessTime,
	headerRateLimitLimit, headerRateLimitRemaining, headerRateLimitReset, headerRetryAfter,
}, ", ")

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		// Call the next handler
		next.ServeHTTP(wrapped, r)

		// Record metrics
		durationMs := float64(time.Since(start).Microseconds()) / 1000.0
		statusCodeStr := strconv.Itoa(wrapped.statusCode)

		// Record basic HTTP metrics
		metrics.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)

		// Record error metrics if status indicates an error
		if wrapped.statusCode >= statusBadRequest {
			errorType := getErrorType(wrapped.statusCode)
			severity := getErrorSeverity(wrapped.statusCode)
			metrics.RecordErrorByEndpoint(endpoint, r.Method, errorType)
			metrics.RecordErrorByType(errorType, severity)
			metrics.RecordErrorLatency("http", errorType, durationMs)
		}
	}
}

// RequestIDMiddleware assigns a fresh request id to every call, stores it on
// the request context and echoes it with the processing time.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := requestid.New()
		w.Header().Set(requestid.Header, id)

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			beforeHeader: func(h http.Header) {
				ms := float64(time.Since(start).Microseconds()) / 1000.0
				h.Set(headerProcessTime, strconv.FormatFloat(ms, 'f', 2, 64))
			},
		}
		next.ServeHTTP(wrapped, r.WithContext(requestid.With(r.Context(), id)))
	})
}

// RecoverMiddleware turns a handler panic into a 500 carrying the request id.
func RecoverMiddleware(next http.Handler, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			id := w.Header().Get(requestid.Header)
			ctx := r.Context()
			if id != "" {
				ctx = requestid.With(ctx, id)
			}
			log.Error(ctx, "panic recovered",
				logger.Any("panic", rec),
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
			)
			metrics.RecordErrorByType("panic", "high")
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:     codeInternal,
				Detail:    "An unexpected error occurred",
				RequestID: id,
			})
		}()
		next.ServeHTTP(w, r)
	})
}

// AccessLogMiddleware logs one line per request.
func AccessLogMiddleware(next http.Handler, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		log.Info(r.Context(), "request completed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", wrapped.statusCode),
			logger.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000.0),
			logger.String("client", clientKey(r)),
		)
	})
}

// CORSMiddleware answers preflight requests and decorates responses for allowed
// origins. An empty list or "*" allows any origin.
func CORSMiddleware(next http.Handler, origins []string) http.Handler {
	allowAll := len(origins) == 0 || slices.Contains(origins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || !(allowAll || slices.Contains(origins, origin)) {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Expose-Headers", exposedHeaders)

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			allowHeaders := r.Header.Get("Access-Control-Request-Headers")
			if allowHeaders == "" {
				allowHeaders = "Content-Type, " + apiKeyHeader
			}
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// APIKeyMiddleware rejects requests without a valid X-API-Key. No keys disables the check.
func APIKeyMiddleware(next http.HandlerFunc, keys []string, log logger.Logger) http.HandlerFunc {
	if len(keys) == 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "api.auth"
		if !validKey(r.Header.Get(apiKeyHeader), keys) {
			log.Warn(r.Context(), "invalid api key", logger.String("client", clientKey(r)))
			w.Header().Set("WWW-Authenticate", apiKeyHeader)
			writeError(w, r, http.StatusUnauthorized, codeUnauthorized, NewKind(op, ErrUnauthorized))
			return
		}
		next(w, r)
	}
}

func validKey(got string, keys []string) bool {
	if got == "" {
		return false
	}
	ok := 0
	for _, k := range keys {
		ok |= subtle.ConstantTimeCompare([]byte(got), []byte(k))
	}
	return ok == 1
}

// RateLimitMiddleware admits requests through l keyed by client. Limiter
// errors fail open. A nil limiter disables the check.
func RateLimitMiddleware(next http.HandlerFunc, l ratelimit.Limiter, log logger.Logger) http.HandlerFunc {
	if l == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "api.rate_limit"
		d, err := l.Allow(r.Context(), clientKey(r))
		if err != nil {
			metrics.RecordRateLimitError()
			metrics.RecordRateLimitDecision("error")
			log.Warn(r.Context(), "rate limiter unavailable; allowing request", logger.Error(err))
			next(w, r)
			return
		}

		reset := ceilSeconds(d.ResetAfter)
		h := w.Header()
		h.Set(headerRateLimitLimit, strconv.Itoa(d.Limit))
		h.Set(headerRateLimitRemaining, strconv.Itoa(d.Remaining))
		h.Set(headerRateLimitReset, strconv.Itoa(reset))

		if !d.Allowed {
			if reset < 1 {
				reset = 1
				h.Set(headerRateLimitReset, "1")
			}
			h.Set(headerRetryAfter, strconv.Itoa(reset))
			metrics.RecordRateLimitDecision("rejected")
			log.Warn(r.Context(), "rate limit exceeded", logger.String("client", clientKey(r)))
			writeError(w, r, http.StatusTooManyRequests, codeTooManyRequests, WrapKind(op, ratelimit.ErrTooManyRequests,
				fmt.Errorf("rate limit exceeded, try again in %d seconds", reset)))
			return
		}
		metrics.RecordRateLimitDecision("allowed")
		next(w, r)
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode >= statusInternalError:
		return "server_error"
	case statusCode == statusTooManyRequests:
		return "rate_limit"
	case statusCode == statusNotFound:
		return "not_found"
	case statusCode >= statusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// getErrorSeverity returns error severity based on HTTP status code.
func getErrorSeverity(statusCode int) string {
	switch {
	case statusCode >= statusInternalError:
		return "high"
	case statusCode >= statusBadRequest:
		return "medium"
	default:
		return "low"
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	wroteHeader  bool
	beforeHeader func(http.Header)
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true
	rw.statusCode = code
	if rw.beforeHeader != nil {
		rw.beforeHeader(rw.Header())
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
