// Package memory provides a process-local identity store for tests and
// single-node local runs. Contents are lost on restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finaidhub/hub/internal/core/domain"
)

type IdentityRepository struct {
	mu   sync.RWMutex
	byID map[string]*domain.Identity
	now  func() time.Time
}

func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{
		byID: make(map[string]*domain.Identity),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *IdentityRepository) Create(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(identity.Email)
	for _, existing := range r.byID {
		if collides(existing, identity.Username, email) {
			return nil, domain.ErrUserExists
		}
	}

	stored := *identity
	stored.ID = uuid.NewString()
	stored.Email = email
	now := r.now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.byID[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (r *IdentityRepository) FindByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *i
	return &out, nil
}

func (r *IdentityRepository) FindByLogin(_ context.Context, login string) (*domain.Identity, error) {
	login = strings.TrimSpace(login)
	email := strings.ToLower(login)

	r.mu.RLock()
	defer r.mu.RUnlock()

	byEmail := domain.IsEmailLogin(login)
	for _, i := range r.byID {
		if (byEmail && i.Email == email) || (!byEmail && i.Username == login) {
			out := *i
			return &out, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// collides reports whether existing already answers to username or email,
// checking both fields against both values.
func collides(existing *domain.Identity, username, email string) bool {
	return existing.Username == username ||
		existing.Email == email ||
		existing.Email == strings.ToLower(username) ||
		existing.Username == email
}

// List orders identities newest first, matching the Mongo store.
func (r *IdentityRepository) List(_ context.Context, f domain.IdentityFilter) ([]*domain.Identity, int64, error) {
	r.mu.RLock()
	matched := make([]*domain.Identity, 0, len(r.byID))
	for _, i := range r.byID {
		if matches(i, f) {
			out := *i
			matched = append(matched, &out)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(a, b int) bool {
		if matched[a].CreatedAt.Equal(matched[b].CreatedAt) {
			return matched[a].Username < matched[b].Username
		}
		return matched[a].CreatedAt.After(matched[b].CreatedAt)
	})

	total := int64(len(matched))
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(matched) {
		return []*domain.Identity{}, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *IdentityRepository) UpdateStatus(_ context.Context, id string, status domain.Status) error {
	return r.update(id, func(i *domain.Identity) { i.Status = status })
}

func (r *IdentityRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.update(id, func(i *domain.Identity) { i.PasswordHash = passwordHash })
}

func (r *IdentityRepository) RecordLogin(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(i *domain.Identity) {
		t := at
		i.LastLoginAt = &t
		if i.Status == domain.StatusInvited {
			i.Status = domain.StatusActive
		}
	})
}

func (r *IdentityRepository) update(id string, fn func(*domain.Identity)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	fn(i)
	i.UpdatedAt = r.now()
	return nil
}

func matches(i *domain.Identity, f domain.IdentityFilter) bool {
	if f.Role != "" && i.Role != f.Role {
		return false
	}
	if f.Status != "" && i.Status != f.Status {
		return false
	}
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		return strings.Contains(strings.ToLower(i.Username), s) ||
			strings.Contains(i.Email, s) ||
			strings.Contains(strings.ToLower(i.DisplayName), s)
	}
	return true
}
