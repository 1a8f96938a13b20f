package ports

import (
	"context"

	"github.com/finaidhub/hub/internal/core/domain"
)

// InviteInput carries the data needed to invite a new identity.
type InviteInput struct {
	Email       string
	Username    string
	DisplayName string
	Role        domain.Role
	Password    string
}

// ListUsersResult is a page of identities.
type ListUsersResult struct {
	Items      []*domain.Identity
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// UserService defines identity management use cases. Every call is scoped to the acting principal.
type UserService interface {
	Invite(ctx context.Context, actor domain.Principal, input InviteInput) (*domain.Identity, error)
	List(ctx context.Context, actor domain.Principal, filter domain.IdentityFilter) (*ListUsersResult, error)
	Get(ctx context.Context, actor domain.Principal, id string) (*domain.Identity, error)
	SetStatus(ctx context.Context, actor domain.Principal, id string, status domain.Status) (*domain.Identity, error)
	ChangePassword(ctx context.Context, actor domain.Principal, current, next string) error
}
