package ports

import (
	"context"
	"time"

	"github.com/finaidhub/hub/internal/core/domain"
)

// IdentityRepository defines persistence for stored identities.
type IdentityRepository interface {
	Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
	// FindByLogin matches login against either the username or the email.
	FindByLogin(ctx context.Context, login string) (*domain.Identity, error)
	List(ctx context.Context, filter domain.IdentityFilter) ([]*domain.Identity, int64, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// RecordLogin stamps last_login_at and promotes an invited identity to active.
	RecordLogin(ctx context.Context, id string, at time.Time) error
}
