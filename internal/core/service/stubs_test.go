package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/finaidhub/hub/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

type stubIdentityRepo struct {
	mu       sync.Mutex
	byID     map[string]*domain.Identity
	nextID   int
	findErr  error // if set, FindByLogin returns this error
	logins   map[string]time.Time
	lastList domain.IdentityFilter
}

func newStubIdentityRepo() *stubIdentityRepo {
	return &stubIdentityRepo{
		byID:   make(map[string]*domain.Identity),
		logins: make(map[string]time.Time),
	}
}

func cloneIdentity(i *domain.Identity) *domain.Identity {
	if i == nil {
		return nil
	}
	clone := *i
	return &clone
}

func (r *stubIdentityRepo) Create(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Username == identity.Username || existing.Email == identity.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.nextID++
	created := cloneIdentity(identity)
	created.ID = fmt.Sprintf("id-%d", r.nextID)
	r.byID[created.ID] = created
	return cloneIdentity(created), nil
}

func (r *stubIdentityRepo) FindByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.byID[id]; ok {
		return cloneIdentity(i), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubIdentityRepo) FindByLogin(_ context.Context, login string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, i := range r.byID {
		if i.Username == login || strings.EqualFold(i.Email, login) {
			return cloneIdentity(i), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubIdentityRepo) List(_ context.Context, filter domain.IdentityFilter) ([]*domain.Identity, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastList = filter
	var out []*domain.Identity
	for _, i := range r.byID {
		if filter.Role != "" && i.Role != filter.Role {
			continue
		}
		out = append(out, cloneIdentity(i))
	}
	return out, int64(len(out)), nil
}

func (r *stubIdentityRepo) UpdateStatus(_ context.Context, id string, status domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	i.Status = status
	return nil
}

func (r *stubIdentityRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	i.PasswordHash = hash
	return nil
}

func (r *stubIdentityRepo) RecordLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	r.logins[id] = at
	if i.Status == domain.StatusInvited {
		i.Status = domain.StatusActive
	}
	return nil
}

// seed stores an identity with a bcrypt hash of password and returns its id.
func (r *stubIdentityRepo) seed(username, email, password string, role domain.Role, status domain.Status) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	created, err := r.Create(context.Background(), &domain.Identity{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       status,
	})
	if err != nil {
		panic(err)
	}
	return created.ID
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (p *recordingPublisher) Publish(ev domain.AuthEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []domain.AuthEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.AuthEventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type stubRevocations struct {
	revoked map[string]time.Time
	err     error
}

func (s *stubRevocations) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if s.err != nil {
		return s.err
	}
	if s.revoked == nil {
		s.revoked = make(map[string]time.Time)
	}
	s.revoked[tokenID] = until
	return nil
}

func (s *stubRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := s.revoked[tokenID]
	return ok, s.err
}

func testHasher() *PasswordHasher {
	return NewPasswordHasher(bcrypt.MinCost)
}
