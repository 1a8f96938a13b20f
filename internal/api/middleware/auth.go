package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/finaidhub/hub/internal/api/metrics"
	"github.com/finaidhub/hub/internal/core/domain"
	"github.com/finaidhub/hub/internal/core/ports"
)

// Context keys set by Auth.
const (
	KeyPrincipal = "principal"
	KeyUserID    = "user_id"
	KeyUsername  = "username"
	KeyRole      = "role"
)

// Auth is the token guard: it validates the bearer token and injects the
// resolved principal into the context. revocations may be nil. A revocation
// lookup failure is logged and the token is accepted on its signature alone.
func Auth(verifier ports.TokenVerifier, revocations ports.RevocationStore, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				metrics.TokenRejectionsTotal.WithLabelValues("missing_header").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				metrics.TokenRejectionsTotal.WithLabelValues("malformed_header").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			principal, err := verifier.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				metrics.TokenRejectionsTotal.WithLabelValues("invalid_token").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			if revocations != nil && principal.TokenID != "" {
				revoked, err := revocations.IsRevoked(c.Request().Context(), principal.TokenID)
				switch {
				case err != nil:
					log.Warn().Err(err).Str("user_id", principal.UserID).Msg("revocation check failed, accepting token")
				case revoked:
					metrics.TokenRejectionsTotal.WithLabelValues("revoked").Inc()
					return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrTokenRevoked.Error())
				}
			}

			c.Set(KeyPrincipal, principal)
			c.Set(KeyUserID, principal.UserID)
			c.Set(KeyUsername, principal.Username)
			c.Set(KeyRole, string(principal.Role))

			return next(c)
		}
	}
}

// PrincipalFrom returns the principal stored by Auth.
func PrincipalFrom(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Get(KeyPrincipal).(domain.Principal)
	return p, ok
}
