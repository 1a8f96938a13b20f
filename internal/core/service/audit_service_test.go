package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/finaidhub/hub/internal/core/domain"
)

type recordingSink struct {
	sent []domain.AuthEvent
	err  error
}

func (s *recordingSink) Send(_ context.Context, ev domain.AuthEvent) error {
	s.sent = append(s.sent, ev)
	return s.err
}

func TestAuditService_LoginRecordsLastLogin(t *testing.T) {
	repo := newStubIdentityRepo()
	id := repo.seed("hal", "hal@x.io", "password1", domain.RoleAccountant, domain.StatusInvited)
	sink := &recordingSink{}
	svc := NewAuditService(repo, sink, zerolog.Nop())

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := svc.Process(context.Background(), domain.AuthEvent{Type: domain.EventLoginSucceeded, UserID: id, Timestamp: at}); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !repo.logins[id].Equal(at) {
		t.Fatalf("expected last login %v, got %v", at, repo.logins[id])
	}
	if stored, _ := repo.FindByID(context.Background(), id); stored.Status != domain.StatusActive {
		t.Fatalf("expected invited identity promoted to active, got %s", stored.Status)
	}
	if len(sink.sent) != 1 {
		t.Fatalf("expected event forwarded to sink")
	}
}

func TestAuditService_OtherEventsOnlyForwarded(t *testing.T) {
	repo := newStubIdentityRepo()
	sink := &recordingSink{}
	svc := NewAuditService(repo, sink, zerolog.Nop())

	if err := svc.Process(context.Background(), domain.AuthEvent{Type: domain.EventLoginFailed, Username: "ghost"}); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if len(repo.logins) != 0 {
		t.Fatalf("failed login must not record last login")
	}
	if len(sink.sent) != 1 {
		t.Fatalf("expected event forwarded")
	}
}

func TestAuditService_ReportsErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker unavailable")}
	svc := NewAuditService(newStubIdentityRepo(), sink, zerolog.Nop())

	err := svc.Process(context.Background(), domain.AuthEvent{Type: domain.EventLoginSucceeded, UserID: "missing"})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected repository error in result, got %v", err)
	}
	if !errors.Is(err, sink.err) {
		t.Fatalf("expected sink error in result, got %v", err)
	}
}

func TestAuditService_NilSink(t *testing.T) {
	svc := NewAuditService(newStubIdentityRepo(), nil, zerolog.Nop())
	if err := svc.Process(context.Background(), domain.AuthEvent{Type: domain.EventLogout}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
