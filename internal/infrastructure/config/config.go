package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const envDevelopment = "development"

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"NODE_ENV,  default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	BodyLimit string `env:"BODY_LIMIT, default=1M"`

	CORSOrigin  string `env:"CORS_ORIGIN"`
	FrontendURL string `env:"FRONTEND_URL"`
	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is honoured.
	// Empty means client IPs come from the TCP peer only.
	TrustedProxies string `env:"TRUSTED_PROXIES"`

	PredictionServiceURL string `env:"PREDICTION_SERVICE_URL"`
	SeedDefaultUsers     bool   `env:"SEED_DEFAULT_USERS, default=false"`
	BcryptCost           int    `env:"BCRYPT_COST,        default=10"`

	JWT       JWTConfig
	RateLimit RateLimitConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Audit     AuditConfig
}

type JWTConfig struct {
	Secret string        `env:"JWT_SECRET"`
	TTL    time.Duration `env:"JWT_TTL,    default=24h"`
	Issuer string        `env:"JWT_ISSUER, default=finaid-hub"`
}

type RateLimitConfig struct {
	WindowMS int64 `env:"RATE_LIMIT_WINDOW,   default=900000"`
	Max      int   `env:"RATE_LIMIT_MAX,      default=100"`
	AuthMax  int   `env:"AUTH_RATE_LIMIT_MAX, default=10"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=finaid_hub"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

type AuditConfig struct {
	AMQPURL   string `env:"AMQP_URL"`
	AMQPQueue string `env:"AMQP_QUEUE,    default=finaid.audit"`
	Workers   int    `env:"AUDIT_WORKERS, default=4"`
}

// Load reads an optional .env file and then the process environment.
// It panics when the resulting configuration is unusable.
func Load() *Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom processes configuration from l and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" && !c.IsDevelopment() {
		return errors.New("JWT_SECRET is required outside development")
	}
	if c.RateLimit.WindowMS <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %d", c.RateLimit.WindowMS)
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.AuthMax <= 0 {
		return errors.New("RATE_LIMIT_MAX and AUTH_RATE_LIMIT_MAX must be positive")
	}
	if c.Audit.Workers <= 0 {
		return fmt.Errorf("AUDIT_WORKERS must be positive, got %d", c.Audit.Workers)
	}
	if _, err := c.TrustedProxyRanges(); err != nil {
		return err
	}
	return nil
}

// IsDevelopment reports whether NODE_ENV selects the development profile.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, envDevelopment)
}

// AllowedOrigins resolves CORS_ORIGIN, then FRONTEND_URL, then "*".
// Either variable may hold a comma-separated list.
func (c *Config) AllowedOrigins() []string {
	raw := c.CORSOrigin
	if raw == "" {
		raw = c.FrontendURL
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// RateWindow is RATE_LIMIT_WINDOW as a duration.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowMS) * time.Millisecond
}

// SigningSecret returns the JWT secret, substituting a fixed development
// value when none is configured.
func (c *Config) SigningSecret() string {
	if c.JWT.Secret == "" {
		return "finaid-hub-dev-secret"
	}
	return c.JWT.Secret
}

// TrustedProxyRanges parses TRUSTED_PROXIES. Bare IPs become single-host ranges.
func (c *Config) TrustedProxyRanges() ([]*net.IPNet, error) {
	var ranges []*net.IPNet
	for _, raw := range strings.Split(c.TrustedProxies, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			ip := net.ParseIP(raw)
			if ip == nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: invalid address %q", raw)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			ranges = append(ranges, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipNet, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		ranges = append(ranges, ipNet)
	}
	return ranges, nil
}
