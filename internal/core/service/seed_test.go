package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/finaidhub/hub/internal/core/domain"
	"github.com/finaidhub/hub/internal/core/ports"
)

func TestSeed_Idempotent(t *testing.T) {
	repo := newStubIdentityRepo()
	hasher := testHasher()

	n, err := Seed(context.Background(), repo, hasher, DefaultSeedIdentities, zerolog.Nop())
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if n != len(DefaultSeedIdentities) {
		t.Fatalf("expected %d created, got %d", len(DefaultSeedIdentities), n)
	}

	n, err = Seed(context.Background(), repo, hasher, DefaultSeedIdentities, zerolog.Nop())
	if err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no identities created on re-run, got %d", n)
	}
}

func TestSeed_DefaultAdminCanLogin(t *testing.T) {
	repo := newStubIdentityRepo()
	hasher := testHasher()
	if _, err := Seed(context.Background(), repo, hasher, DefaultSeedIdentities, zerolog.Nop()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	svc := NewAuthService(repo, hasher, NewTokenService("secret", "finaid-hub", 0), nil, nil, zerolog.Nop())
	res, err := svc.Login(context.Background(), ports.LoginInput{Username: "admin@finaidhub.io", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Identity.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %s", res.Identity.Role)
	}
}
