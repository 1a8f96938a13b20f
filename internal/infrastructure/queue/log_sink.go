package queue

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/finaidhub/hub/internal/core/domain"
)

// LogSink writes audit events to the structured log. Used when no broker is configured.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Send(_ context.Context, e domain.AuthEvent) error {
	s.log.Info().
		Str("type", string(e.Type)).
		Str("user_id", e.UserID).
		Str("username", e.Username).
		Str("role", string(e.Role)).
		Str("actor_id", e.ActorID).
		Str("remote_ip", e.RemoteIP).
		Str("detail", e.Detail).
		Time("at", e.Timestamp).
		Msg("audit")
	return nil
}
