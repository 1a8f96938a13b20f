package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/finaidhub/hub/internal/core/domain"
	"github.com/finaidhub/hub/internal/core/ports"
)

// SeedIdentity describes an identity created at startup when seeding is enabled.
type SeedIdentity struct {
	Email       string
	Username    string
	DisplayName string
	Password    string
	Role        domain.Role
}

// DefaultSeedIdentities provides one active login per role for local environments.
var DefaultSeedIdentities = []SeedIdentity{
	{Email: "superadmin@finaidhub.io", Username: "superadmin", DisplayName: "Super Admin", Password: "superadmin123", Role: domain.RoleSuperAdmin},
	{Email: "admin@finaidhub.io", Username: "admin", DisplayName: "Platform Admin", Password: "admin123", Role: domain.RoleAdmin},
	{Email: "owner@finaidhub.io", Username: "owner", DisplayName: "Firm Owner", Password: "owner123", Role: domain.RoleAccountingFirmOwner},
	{Email: "accountant@finaidhub.io", Username: "accountant", DisplayName: "Staff Accountant", Password: "accountant123", Role: domain.RoleAccountant},
}

// Seed ensures every identity in seeds exists. Existing identities are left untouched.
// It returns the number of identities created.
func Seed(ctx context.Context, repo ports.IdentityRepository, hasher *PasswordHasher, seeds []SeedIdentity, log zerolog.Logger) (int, error) {
	created := 0
	for _, sd := range seeds {
		hash, err := hasher.Hash(sd.Password)
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", sd.Email, err)
		}

		now := time.Now().UTC()
		_, err = repo.Create(ctx, &domain.Identity{
			Email:        sd.Email,
			Username:     sd.Username,
			DisplayName:  sd.DisplayName,
			PasswordHash: hash,
			Role:         sd.Role,
			Status:       domain.StatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		switch {
		case errors.Is(err, domain.ErrUserExists):
			log.Debug().Str("email", sd.Email).Msg("seed identity already present")
		case err != nil:
			return created, fmt.Errorf("seed %s: %w", sd.Email, err)
		default:
			created++
			log.Info().Str("email", sd.Email).Str("role", sd.Role.String()).Msg("seed identity created")
		}
	}
	return created, nil
}
