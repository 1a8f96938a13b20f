package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/finaidhub/hub/internal/api/metrics"
	"github.com/finaidhub/hub/internal/core/ports"
)

// RateLimit rejects requests beyond the limiter's window with 429, before any
// credential check runs. Keys are scoped per client IP. A limiter backend
// failure lets the request through.
func RateLimit(limiter ports.RateLimiter, scope string, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}

			decision, err := limiter.Allow(c.Request().Context(), scope+":"+ip)
			if err != nil {
				metrics.RateLimiterErrorsTotal.WithLabelValues(scope).Inc()
				log.Warn().Err(err).Str("scope", scope).Msg("rate limiter unavailable, allowing request")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				h.Set("Retry-After", strconv.FormatInt(decision.RetryAfter, 10))
				metrics.RateLimitedTotal.WithLabelValues(scope).Inc()
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
			}
			return next(c)
		}
	}
}
