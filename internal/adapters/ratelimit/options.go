package ratelimit

import "time"

type settings struct {
	limit  int
	window time.Duration
	shards int
	prefix string
	now    func() time.Time
}

func defaults() settings {
	return settings{
		limit:  DefaultLimit,
		window: DefaultWindow,
		shards: 32,
		prefix: "alie:ratelimit:",
		now:    time.Now,
	}
}

// Option applies a configuration option to a limiter.
type Option func(*settings)

// WithLimit sets the number of requests allowed per window.
func WithLimit(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithWindow sets the window length.
func WithWindow(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithShards sets the number of independently locked key shards (memory only).
func WithShards(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.shards = n
		}
	}
}

// WithKeyPrefix sets the key namespace (redis only).
func WithKeyPrefix(p string) Option {
	return func(s *settings) {
		if p != "" {
			s.prefix = p
		}
	}
}

// WithClock replaces time.Now (memory only).
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}
