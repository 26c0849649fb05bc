// Package ratelimit bounds how many requests one client key may make per window.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Defaults applied when options are not given.
const (
	DefaultLimit  = 100
	DefaultWindow = 60 * time.Second
)

var (
	// ErrTooManyRequests is returned by callers when a Decision is not allowed.
	ErrTooManyRequests = errors.New("ratelimit: too many requests")
	// ErrBackend wraps failures of a shared limiter store.
	ErrBackend = errors.New("ratelimit: backend unavailable")
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// Limiter admits or rejects one request for key. Each call that returns
// Allowed consumes one slot.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
