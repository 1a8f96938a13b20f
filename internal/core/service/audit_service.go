package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/finaidhub/hub/internal/core/domain"
	"github.com/finaidhub/hub/internal/core/ports"
)

type auditService struct {
	repo ports.IdentityRepository
	sink ports.EventSink
	log  zerolog.Logger
}

// NewAuditService returns the processor run by the audit dispatcher workers.
// sink may be nil, in which case events are only logged.
func NewAuditService(repo ports.IdentityRepository, sink ports.EventSink, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, sink: sink, log: log}
}

// Process applies local side effects (last-login bookkeeping) and forwards the event.
// A sink failure does not undo the local update.
func (s *auditService) Process(ctx context.Context, ev domain.AuthEvent) error {
	var errs []error

	if ev.Type == domain.EventLoginSucceeded && ev.UserID != "" {
		if err := s.repo.RecordLogin(ctx, ev.UserID, ev.Timestamp); err != nil {
			errs = append(errs, fmt.Errorf("record login: %w", err))
		}
	}

	if s.sink != nil {
		if err := s.sink.Send(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("forward event: %w", err))
		}
	}

	s.log.Debug().
		Str("type", string(ev.Type)).
		Str("user_id", ev.UserID).
		Str("actor_id", ev.ActorID).
		Msg("audit event processed")

	return errors.Join(errs...)
}
