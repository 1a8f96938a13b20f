package ports

import (
	"context"

	"github.com/finaidhub/hub/internal/core/domain"
)

// AuditService applies the side effects of an audit event.
type AuditService interface {
	Process(ctx context.Context, event domain.AuthEvent) error
}

// EventSink forwards audit events outside the process (message broker, log).
type EventSink interface {
	Send(ctx context.Context, event domain.AuthEvent) error
}
