package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/finaidhub/hub/internal/core/domain"
	"github.com/finaidhub/hub/internal/core/ports"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// UserService implements identity management scoped by the role hierarchy.
type UserService struct {
	repo   ports.IdentityRepository
	hasher *PasswordHasher
	events ports.EventPublisher
	log    zerolog.Logger
	now    func() time.Time
}

func NewUserService(repo ports.IdentityRepository, hasher *PasswordHasher, events ports.EventPublisher, log zerolog.Logger) *UserService {
	return &UserService{repo: repo, hasher: hasher, events: events, log: log, now: time.Now}
}

// Invite creates an identity in the invited state. The actor must outrank the new role.
func (s *UserService) Invite(ctx context.Context, actor domain.Principal, in ports.InviteInput) (*domain.Identity, error) {
	if !in.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if !actor.Role.Outranks(in.Role) {
		return nil, domain.ErrForbidden
	}
	if !domain.ValidUsername(in.Username) {
		return nil, domain.ErrInvalidUsername
	}
	if len(in.Password) < MinPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("invite: hash password: %w", err)
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.Identity{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Username:     strings.TrimSpace(in.Username),
		DisplayName:  strings.TrimSpace(in.DisplayName),
		PasswordHash: hash,
		Role:         in.Role,
		Status:       domain.StatusInvited,
		InvitedBy:    actor.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.publish(domain.AuthEvent{Type: domain.EventUserInvited, UserID: created.ID, Username: created.Username, Role: created.Role, ActorID: actor.UserID})
	s.log.Info().Str("user_id", created.ID).Str("role", created.Role.String()).Str("actor_id", actor.UserID).Msg("user invited")
	return created, nil
}

// List returns a page of identities. Only admins and super admins may list.
func (s *UserService) List(ctx context.Context, actor domain.Principal, filter domain.IdentityFilter) (*ports.ListUsersResult, error) {
	if actor.Role != domain.RoleSuperAdmin && actor.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	totalPages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return &ports.ListUsersResult{
		Items:      items,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}, nil
}

// Get returns the identity with id. Anyone may read themselves; others require
// super_admin or a strictly higher role than the target.
func (s *UserService) Get(ctx context.Context, actor domain.Principal, id string) (*domain.Identity, error) {
	identity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Is(identity.ID) || actor.Role == domain.RoleSuperAdmin || actor.Role.Outranks(identity.Role) {
		return identity, nil
	}
	return nil, domain.ErrForbidden
}

// SetStatus activates or deactivates an identity ranked below the actor.
func (s *UserService) SetStatus(ctx context.Context, actor domain.Principal, id string, status domain.Status) (*domain.Identity, error) {
	if status != domain.StatusActive && status != domain.StatusInactive {
		return nil, domain.ErrInvalidStatus
	}
	if actor.Is(id) {
		return nil, domain.ErrForbidden
	}

	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.Outranks(target.Role) {
		return nil, domain.ErrForbidden
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	target.Status = status
	target.UpdatedAt = s.now().UTC()

	s.publish(domain.AuthEvent{Type: domain.EventStatusChanged, UserID: target.ID, Username: target.Username, Role: target.Role, ActorID: actor.UserID, Detail: string(status)})
	return target, nil
}

// ChangePassword replaces the actor's own password after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, actor domain.Principal, current, next string) error {
	if len(next) < MinPasswordLength {
		return domain.ErrWeakPassword
	}

	identity, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !s.hasher.Compare(identity.PasswordHash, current) {
		return domain.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("change password: hash: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, identity.ID, hash); err != nil {
		return err
	}

	s.publish(domain.AuthEvent{Type: domain.EventPasswordChange, UserID: identity.ID, Username: identity.Username, Role: identity.Role, ActorID: actor.UserID})
	return nil
}

func (s *UserService) publish(ev domain.AuthEvent) {
	if s.events == nil {
		return
	}
	ev.Timestamp = s.now().UTC()
	s.events.Publish(ev)
}
