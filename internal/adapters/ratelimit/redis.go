package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindow increments the counter for the current window and returns the
// count together with the milliseconds left until the window closes.
var fixedWindow = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// Redis is a fixed-window limiter shared by every replica pointing at the same server.
type Redis struct {
	cfg    settings
	client redis.Scripter
}

// NewRedis creates a limiter over client.
func NewRedis(client redis.Scripter, opts ...Option) *Redis {
	cfg := defaults()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Redis{cfg: cfg, client: client}
}

// Allow implements Limiter.
func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := fixedWindow.Run(ctx, r.client, []string{r.cfg.prefix + key}, r.cfg.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("%w: unexpected reply %v", ErrBackend, res)
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	remaining := r.cfg.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:    count <= r.cfg.limit,
		Limit:      r.cfg.limit,
		Remaining:  remaining,
		ResetAfter: ttl,
	}, nil
}
