package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/finaidhub/hub/internal/core/ports"
)

const rateLimitPrefix = "rl:"

// fixedWindowScript increments the window counter, arms its expiry on the
// first hit and returns {count, pttl_ms}.
var fixedWindowScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return { count, ttl }
`)

// RateLimiter is a fixed-window counter shared by every API replica.
// Key format: rl:<scope>:<client_ip>
type RateLimiter struct {
	client redis.Scripter
	max    int
	window time.Duration
}

func NewRateLimiter(client redis.Scripter, max int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, max: max, window: window}
}

func (l *RateLimiter) Allow(ctx context.Context, key string) (ports.RateDecision, error) {
	vals, err := fixedWindowScript.Run(ctx, l.client, []string{rateLimitPrefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return ports.RateDecision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 2 {
		return ports.RateDecision{}, fmt.Errorf("rate limit script: unexpected result %v", vals)
	}
	return decide(l.max, vals[0], vals[1]), nil
}

func decide(max int, count, ttlMS int64) ports.RateDecision {
	remaining := int64(max) - count
	if remaining < 0 {
		remaining = 0
	}
	d := ports.RateDecision{
		Allowed:   count <= int64(max),
		Limit:     max,
		Remaining: int(remaining),
	}
	if !d.Allowed {
		d.RetryAfter = (ttlMS + 999) / 1000
		if d.RetryAfter < 1 {
			d.RetryAfter = 1
		}
	}
	return d
}
