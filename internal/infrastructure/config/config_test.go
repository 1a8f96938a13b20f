package config

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8080" || !cfg.IsDevelopment() {
		t.Fatalf("unexpected defaults: port=%s env=%s", cfg.Port, cfg.Env)
	}
	if cfg.JWT.TTL != 24*time.Hour || cfg.JWT.Issuer != "finaid-hub" {
		t.Fatalf("unexpected jwt defaults: %+v", cfg.JWT)
	}
	if cfg.RateWindow() != 15*time.Minute || cfg.RateLimit.Max != 100 || cfg.RateLimit.AuthMax != 10 {
		t.Fatalf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
	if cfg.Redis.Addr != "" {
		t.Fatalf("redis should be disabled by default, got %q", cfg.Redis.Addr)
	}
	if cfg.Audit.AMQPQueue != "finaid.audit" || cfg.Audit.Workers != 4 {
		t.Fatalf("unexpected audit defaults: %+v", cfg.Audit)
	}
	if cfg.SigningSecret() == "" {
		t.Fatalf("development must have a signing secret")
	}
}

func TestLoadFrom_SecretRequiredInProduction(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"NODE_ENV": "production",
	}))
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}

	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"NODE_ENV":   "production",
		"JWT_SECRET": "s3cret",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SigningSecret() != "s3cret" {
		t.Fatalf("expected configured secret, got %q", cfg.SigningSecret())
	}
}

func TestLoadFrom_RejectsBadValues(t *testing.T) {
	for _, env := range []map[string]string{
		{"RATE_LIMIT_WINDOW": "0"},
		{"RATE_LIMIT_MAX": "-1"},
		{"AUDIT_WORKERS": "0"},
		{"JWT_TTL": "forever"},
	} {
		if _, err := LoadFrom(context.Background(), envconfig.MapLookuper(env)); err == nil {
			t.Fatalf("expected error for %v", env)
		}
	}
}

func TestAllowedOrigins(t *testing.T) {
	cases := []struct {
		cors     string
		frontend string
		want     []string
	}{
		{"", "", []string{"*"}},
		{"", "http://localhost:3000", []string{"http://localhost:3000"}},
		{"https://app.finaidhub.io, https://admin.finaidhub.io", "http://localhost:3000", []string{"https://app.finaidhub.io", "https://admin.finaidhub.io"}},
	}

	for _, tc := range cases {
		cfg := &Config{CORSOrigin: tc.cors, FrontendURL: tc.frontend}
		if got := cfg.AllowedOrigins(); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("cors=%q frontend=%q: expected %v, got %v", tc.cors, tc.frontend, tc.want, got)
		}
	}
}

func TestTrustedProxyRanges(t *testing.T) {
	cfg := &Config{TrustedProxies: " 10.0.0.0/8, 192.168.1.7 ,"}
	ranges, err := cfg.TrustedProxyRanges()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %v", ranges)
	}
	if got := ranges[0].String(); got != "10.0.0.0/8" {
		t.Fatalf("unexpected first range %s", got)
	}
	if got := ranges[1].String(); got != "192.168.1.7/32" {
		t.Fatalf("bare IP should become a single host, got %s", got)
	}

	if ranges, _ := (&Config{}).TrustedProxyRanges(); len(ranges) != 0 {
		t.Fatalf("empty setting should trust no proxy, got %v", ranges)
	}

	_, err = LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{"TRUSTED_PROXIES": "not-an-ip"}))
	if err == nil || !strings.Contains(err.Error(), "TRUSTED_PROXIES") {
		t.Fatalf("expected TRUSTED_PROXIES error, got %v", err)
	}
}
