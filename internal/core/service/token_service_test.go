package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/finaidhub/hub/internal/core/domain"
)

func TestTokenService_IssueVerify(t *testing.T) {
	svc := NewTokenService("secret", "finaid-hub", time.Hour)
	identity := &domain.Identity{ID: "u42", Username: "alice", Role: domain.RoleAccountingFirmOwner}

	token, exp, err := svc.Issue(identity)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	p, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if p.UserID != "u42" || p.Username != "alice" || p.Role != domain.RoleAccountingFirmOwner {
		t.Fatalf("unexpected principal: %+v", p)
	}
	if p.TokenID == "" {
		t.Fatalf("expected token id")
	}
	if p.ExpiresAt.Unix() != exp.Unix() {
		t.Fatalf("expected expiry %v, got %v", exp, p.ExpiresAt)
	}
}

func TestTokenService_UniqueTokenIDs(t *testing.T) {
	svc := NewTokenService("secret", "finaid-hub", time.Hour)
	identity := &domain.Identity{ID: "u1", Role: domain.RoleAdmin}

	a, _, _ := svc.Issue(identity)
	b, _, _ := svc.Issue(identity)
	pa, _ := svc.Verify(a)
	pb, _ := svc.Verify(b)
	if pa.TokenID == pb.TokenID {
		t.Fatalf("expected distinct token ids")
	}
}

func TestTokenService_Expired(t *testing.T) {
	svc := NewTokenService("secret", "finaid-hub", time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := svc.Issue(&domain.Identity{ID: "u1", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	svc.now = time.Now
	if _, err := svc.Verify(token); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestTokenService_WrongSecretOrIssuer(t *testing.T) {
	issuer := NewTokenService("secret", "finaid-hub", time.Hour)
	token, _, _ := issuer.Issue(&domain.Identity{ID: "u1", Role: domain.RoleAdmin})

	if _, err := NewTokenService("other", "finaid-hub", time.Hour).Verify(token); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
	if _, err := NewTokenService("secret", "someone-else", time.Hour).Verify(token); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for wrong issuer, got %v", err)
	}
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":  "u1",
		"role": "admin",
		"iss":  "finaid-hub",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	svc := NewTokenService("secret", "finaid-hub", time.Hour)
	if _, err := svc.Verify(signed); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for HS512 token, got %v", err)
	}
}

func TestTokenService_RejectsUnknownRoleAndMissingExpiry(t *testing.T) {
	svc := NewTokenService("secret", "finaid-hub", time.Hour)

	unknownRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1", "role": "client", "iss": "finaid-hub", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	if _, err := svc.Verify(unknownRole); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for unknown role, got %v", err)
	}

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1", "role": "admin", "iss": "finaid-hub",
	}).SignedString([]byte("secret"))
	if _, err := svc.Verify(noExpiry); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken without exp, got %v", err)
	}
}
