package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/finaidhub/hub/internal/core/domain"
)

var (
	// ErrRoleMismatch means the authenticated identity does not hold the role
	// selected at login. Nothing is persisted.
	ErrRoleMismatch = errors.New("the selected role does not match this account")
	// ErrUnknownRole means a role string is not one the platform defines.
	ErrUnknownRole = errors.New("unknown role")
)

// RoleRouter sends an authenticated identity to the dashboard for its role.
// It is a navigation gate only; the server enforces authorization.
type RoleRouter struct {
	api   *Client
	store SessionStore
	now   func() time.Time
}

func NewRoleRouter(api *Client, store SessionStore) *RoleRouter {
	return &RoleRouter{api: api, store: store, now: time.Now}
}

// Login authenticates and checks that the server-assigned role equals
// selectedRole. On a match the session is stored and the dashboard route
// returned.
func (r *RoleRouter) Login(ctx context.Context, username, password, selectedRole string) (string, error) {
	selected, ok := domain.ParseRole(selectedRole)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, selectedRole)
	}

	resp, err := r.api.Login(ctx, username, password)
	if err != nil {
		return "", err
	}

	actual, ok := domain.ParseRole(resp.UserType)
	if !ok {
		return "", fmt.Errorf("%w: server returned %q", ErrUnknownRole, resp.UserType)
	}
	if actual != selected {
		return "", fmt.Errorf("%w: signed in as %s, selected %s", ErrRoleMismatch, humanRole(actual), humanRole(selected))
	}

	if err := r.store.Save(&Session{
		AccessToken: resp.AccessToken,
		UserType:    resp.UserType,
		UserDetails: resp.UserDetails,
		ExpiresAt:   resp.ExpiresAt,
	}); err != nil {
		return "", err
	}
	return actual.DashboardRoute(), nil
}

// Current returns the stored session, clearing it when it has expired.
func (r *RoleRouter) Current() (*Session, error) {
	s, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	if s.Expired(r.now()) {
		_ = r.store.Clear()
		return nil, ErrNoSession
	}
	return s, nil
}

// Authorize checks that the stored session may navigate to route. Each role
// may only enter the dashboard tree of its own role.
func (r *RoleRouter) Authorize(route string) error {
	s, err := r.Current()
	if err != nil {
		return err
	}
	role, ok := domain.ParseRole(s.UserType)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRole, s.UserType)
	}
	home := strings.TrimSuffix(role.DashboardRoute(), "/dashboard")
	if route != home && !strings.HasPrefix(route, home+"/") {
		return ErrRoleMismatch
	}
	return nil
}

// Logout tells the server to revoke the token and clears local state even
// when the server call fails.
func (r *RoleRouter) Logout(ctx context.Context) error {
	s, err := r.store.Load()
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	var sessionErr error
	if err != nil {
		sessionErr = err
	} else {
		sessionErr = r.api.Logout(ctx, s.AccessToken)
	}
	return errors.Join(sessionErr, r.store.Clear())
}

func humanRole(r domain.Role) string {
	return strings.ReplaceAll(string(r), "_", " ")
}
