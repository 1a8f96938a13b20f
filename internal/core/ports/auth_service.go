package ports

import (
	"context"
	"time"

	"github.com/finaidhub/hub/internal/core/domain"
)

// LoginResult is returned by a successful credential check.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Identity  *domain.Identity
}

// LoginInput carries the credentials submitted by a client.
type LoginInput struct {
	Username string
	Password string
	RemoteIP string
}

type AuthService interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, principal domain.Principal) error
}

// TokenIssuer signs session tokens for an identity.
type TokenIssuer interface {
	Issue(identity *domain.Identity) (token string, expiresAt time.Time, err error)
}

// TokenVerifier resolves a raw bearer token into a principal.
type TokenVerifier interface {
	Verify(raw string) (domain.Principal, error)
}

// RevocationStore keeps the ids of tokens invalidated before their natural expiry.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// EventPublisher hands audit events to the asynchronous processor.
type EventPublisher interface {
	Publish(event domain.AuthEvent)
}
