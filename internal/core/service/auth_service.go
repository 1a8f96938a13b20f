package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/finaidhub/hub/internal/core/domain"
	"github.com/finaidhub/hub/internal/core/ports"
)

// AuthService implements login (the credential verifier) and logout.
type AuthService struct {
	repo        ports.IdentityRepository
	hasher      *PasswordHasher
	tokens      ports.TokenIssuer
	revocations ports.RevocationStore // nil when tokens are purely stateless
	events      ports.EventPublisher
	log         zerolog.Logger
	now         func() time.Time
}

func NewAuthService(
	repo ports.IdentityRepository,
	hasher *PasswordHasher,
	tokens ports.TokenIssuer,
	revocations ports.RevocationStore,
	events ports.EventPublisher,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		repo:        repo,
		hasher:      hasher,
		tokens:      tokens,
		revocations: revocations,
		events:      events,
		log:         log,
		now:         time.Now,
	}
}

// Login verifies the credentials and issues a session token. Unknown logins and
// wrong passwords produce the same error so callers cannot probe for accounts.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	login := strings.TrimSpace(in.Username)
	if login == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	identity, err := s.repo.FindByLogin(ctx, login)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("login: %w", err)
		}
		s.hasher.CompareDummy(in.Password)
		s.publish(domain.AuthEvent{Type: domain.EventLoginFailed, Username: login, RemoteIP: in.RemoteIP, Detail: "unknown login"})
		return nil, domain.ErrInvalidCredentials
	}

	if !s.hasher.Compare(identity.PasswordHash, in.Password) {
		s.publish(domain.AuthEvent{Type: domain.EventLoginFailed, UserID: identity.ID, Username: identity.Username, RemoteIP: in.RemoteIP, Detail: "password mismatch"})
		return nil, domain.ErrInvalidCredentials
	}

	if !identity.Status.CanLogin() {
		s.publish(domain.AuthEvent{Type: domain.EventLoginFailed, UserID: identity.ID, Username: identity.Username, RemoteIP: in.RemoteIP, Detail: "account inactive"})
		return nil, domain.ErrAccountInactive
	}

	token, expiresAt, err := s.tokens.Issue(identity)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.publish(domain.AuthEvent{
		Type:     domain.EventLoginSucceeded,
		UserID:   identity.ID,
		Username: identity.Username,
		Role:     identity.Role,
		RemoteIP: in.RemoteIP,
	})
	s.log.Info().Str("user_id", identity.ID).Str("role", identity.Role.String()).Msg("login succeeded")

	return &ports.LoginResult{Token: token, ExpiresAt: expiresAt, Identity: identity}, nil
}

// Logout revokes the presented token until its natural expiry. Without a
// revocation store the token stays valid and logout is client-side only.
func (s *AuthService) Logout(ctx context.Context, p domain.Principal) error {
	if s.revocations != nil && p.TokenID != "" {
		if err := s.revocations.Revoke(ctx, p.TokenID, p.ExpiresAt); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
	}

	s.publish(domain.AuthEvent{Type: domain.EventLogout, UserID: p.UserID, Username: p.Username, Role: p.Role})
	return nil
}

func (s *AuthService) publish(ev domain.AuthEvent) {
	if s.events == nil {
		return
	}
	ev.Timestamp = s.now().UTC()
	s.events.Publish(ev)
}
