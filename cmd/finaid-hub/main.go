// @title                      Fin(Ai)d Hub API
// @version                    1.0
// @description                Authentication and role-based access for the Fin(Ai)d Hub platform.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/finaidhub/hub/internal/api"
	"github.com/finaidhub/hub/internal/api/handler"
	"github.com/finaidhub/hub/internal/core/ports"
	"github.com/finaidhub/hub/internal/core/service"
	"github.com/finaidhub/hub/internal/infrastructure/config"
	"github.com/finaidhub/hub/internal/infrastructure/db/memory"
	mongostore "github.com/finaidhub/hub/internal/infrastructure/db/mongo"
	redisstore "github.com/finaidhub/hub/internal/infrastructure/db/redis"
	"github.com/finaidhub/hub/internal/infrastructure/queue"
	"github.com/finaidhub/hub/internal/infrastructure/ratelimit"
	"github.com/finaidhub/hub/pkg/logger"
)

const (
	serviceName     = "finaid-hub"
	shutdownTimeout = 15 * time.Second
	// memoryStoreURI selects the process-local identity store.
	memoryStoreURI = "memory"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.OptionsFor(cfg.LogLevel, cfg.Env, serviceName))

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		repo   ports.IdentityRepository
		checks []handler.DependencyCheck
	)

	// --- Identity store ---
	if cfg.Mongo.URI == memoryStoreURI {
		log.Warn().Msg("using in-memory identity store, data is lost on restart")
		repo = memory.NewIdentityRepository()
	} else {
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: serviceName})
		if err != nil {
			return err
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}()

		identities := mongostore.NewIdentityRepository(db)
		if err := identities.EnsureIndexes(ctx); err != nil {
			return err
		}
		repo = identities
		checks = append(checks, handler.DependencyCheck{Name: "mongodb", Ping: mongostore.Pinger(client)})
	}

	// --- Rate limiting and revocation ---
	var (
		apiLimiter  ports.RateLimiter
		authLimiter ports.RateLimiter
		revocations ports.RevocationStore
	)
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()

		apiLimiter = redisstore.NewRateLimiter(rdb, cfg.RateLimit.Max, cfg.RateWindow())
		authLimiter = redisstore.NewRateLimiter(rdb, cfg.RateLimit.AuthMax, cfg.RateWindow())
		revocations = redisstore.NewRevocationStore(rdb)
		checks = append(checks, handler.DependencyCheck{Name: "redis", Ping: redisstore.Pinger(rdb)})
	} else {
		log.Warn().Msg("REDIS_ADDR not set: rate limits are per replica and logout does not revoke tokens")
		apiLimiter = ratelimit.NewMemory(cfg.RateLimit.Max, cfg.RateWindow())
		authLimiter = ratelimit.NewMemory(cfg.RateLimit.AuthMax, cfg.RateWindow())
	}

	// --- Audit pipeline ---
	var sink ports.EventSink = queue.NewLogSink(logger.Component("audit"))
	if cfg.Audit.AMQPURL != "" {
		amqpSink := queue.NewAMQPSink(cfg.Audit.AMQPURL, cfg.Audit.AMQPQueue)
		defer amqpSink.Close()
		sink = amqpSink
	}
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, service.NewAuditService(repo, sink, logger.Component("audit")), logger.Component("dispatcher"))
	dispatcher.Start(context.WithoutCancel(ctx))

	// --- Core services ---
	hasher := service.NewPasswordHasher(cfg.BcryptCost)
	tokens := service.NewTokenService(cfg.SigningSecret(), cfg.JWT.Issuer, cfg.JWT.TTL)
	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET not set, using the development signing secret")
	}

	if cfg.SeedDefaultUsers {
		n, err := service.Seed(ctx, repo, hasher, service.DefaultSeedIdentities, logger.Component("seed"))
		if err != nil {
			return err
		}
		log.Info().Int("created", n).Msg("default identities seeded")
	}

	// Validated by config.Load.
	trustedProxies, _ := cfg.TrustedProxyRanges()

	e, err := api.NewRouter(api.Dependencies{
		Log:                  logger.Component("http"),
		AuthService:          service.NewAuthService(repo, hasher, tokens, revocations, dispatcher, logger.Component("auth")),
		UserService:          service.NewUserService(repo, hasher, dispatcher, logger.Component("users")),
		Tokens:               tokens,
		Revocations:          revocations,
		APILimiter:           apiLimiter,
		AuthLimiter:          authLimiter,
		ReadinessChecks:      checks,
		AllowedOrigins:       cfg.AllowedOrigins(),
		TrustedProxies:       trustedProxies,
		BodyLimit:            cfg.BodyLimit,
		PredictionServiceURL: cfg.PredictionServiceURL,
	})
	if err != nil {
		return err
	}

	// --- Serve until signalled ---
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("audit queue not fully drained")
	}
	log.Info().Msg("shutdown complete")
	return nil
}
