package api

import (
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/finaidhub/hub/docs"
	"github.com/finaidhub/hub/internal/api/handler"
	"github.com/finaidhub/hub/internal/api/middleware"
	"github.com/finaidhub/hub/internal/core/domain"
	"github.com/finaidhub/hub/internal/core/ports"
)

// Dependencies carries everything the router wires into handlers and middleware.
type Dependencies struct {
	Log zerolog.Logger

	AuthService ports.AuthService
	UserService ports.UserService
	Tokens      ports.TokenVerifier
	// Revocations may be nil when no denylist is configured.
	Revocations ports.RevocationStore

	// APILimiter guards every /api/v1 route, AuthLimiter additionally guards
	// login. Either may be nil.
	APILimiter  ports.RateLimiter
	AuthLimiter ports.RateLimiter

	ReadinessChecks []handler.DependencyCheck

	AllowedOrigins []string
	// TrustedProxies are the only peers whose X-Forwarded-For is used for the
	// client IP. When empty the TCP peer address is used.
	TrustedProxies []*net.IPNet
	BodyLimit      string
	// PredictionServiceURL enables the /api/v1/predictions proxy when set.
	PredictionServiceURL string

	// Metrics overrides the default Prometheus registry.
	Metrics *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)
	e.IPExtractor = ipExtractor(deps.TrustedProxies)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echomiddleware.Secure())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:  deps.AllowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After", echo.HeaderXRequestID},
	}))
	if deps.BodyLimit != "" {
		e.Use(echomiddleware.BodyLimit(deps.BodyLimit))
	}

	promCfg := echoprometheus.MiddlewareConfig{Subsystem: "finaid_hub"}
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if deps.Metrics != nil {
		promCfg.Registerer = deps.Metrics
		gatherer = deps.Metrics
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(promCfg))

	// --- Operational routes (no auth required) ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.ReadinessChecks...)
	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- API v1 ---
	v1 := e.Group("/api/v1", limit(deps.APILimiter, "api", deps.Log))

	authHandler := handler.NewAuthHandler(deps.AuthService, deps.UserService)
	userHandler := handler.NewUserHandler(deps.UserService)
	guard := middleware.Auth(deps.Tokens, deps.Revocations, deps.Log)

	v1.POST("/auth", authHandler.Login, limit(deps.AuthLimiter, "auth", deps.Log))
	v1.POST("/auth/logout", authHandler.Logout, guard)
	v1.GET("/auth/me", authHandler.Me, guard)

	users := v1.Group("/users", guard)
	users.GET("", userHandler.List, middleware.RBAC(domain.RoleSuperAdmin, domain.RoleAdmin))
	users.POST("", userHandler.Create, middleware.RBAC(domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleAccountingFirmOwner))
	users.PUT("/me/password", userHandler.ChangePassword)
	users.GET("/:id", userHandler.Get)
	users.PATCH("/:id/status", userHandler.SetStatus, middleware.RBAC(domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleAccountingFirmOwner))

	if deps.PredictionServiceURL != "" {
		target, err := url.Parse(deps.PredictionServiceURL)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("invalid prediction service url %q", deps.PredictionServiceURL)
		}
		predictions := v1.Group("/predictions", guard)
		predictions.Use(echomiddleware.ProxyWithConfig(echomiddleware.ProxyConfig{
			Balancer: echomiddleware.NewRoundRobinBalancer([]*echomiddleware.ProxyTarget{{URL: target}}),
			Rewrite:  map[string]string{"/api/v1/predictions/*": "/$1"},
		}))
		predictions.Any("/*", func(c echo.Context) error { return nil })
	}

	return e, nil
}

func limit(l ports.RateLimiter, scope string, log zerolog.Logger) echo.MiddlewareFunc {
	if l == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.RateLimit(l, scope, log)
}

// ipExtractor keys rate limits on the TCP peer unless trusted proxies are
// configured, so a client cannot pick its own limiter bucket.
func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, r := range trusted {
		opts = append(opts, echo.TrustIPRange(r))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}
