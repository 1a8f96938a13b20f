package ports

import "context"

// RateDecision is the outcome of one rate-limit check.
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter int64 // seconds until the window resets; 0 when allowed
}

// RateLimiter counts requests per key inside a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateDecision, error)
}
