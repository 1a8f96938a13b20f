package domain

import "time"

// AuthEventType names an audit event emitted by the auth and identity services.
type AuthEventType string

const (
	EventLoginSucceeded AuthEventType = "login.succeeded"
	EventLoginFailed    AuthEventType = "login.failed"
	EventLogout         AuthEventType = "logout"
	EventUserInvited    AuthEventType = "user.invited"
	EventStatusChanged  AuthEventType = "user.status_changed"
	EventPasswordChange AuthEventType = "user.password_changed"
)

// AuthEvent is an audit record processed asynchronously after the request returns.
type AuthEvent struct {
	Type      AuthEventType `json:"type"`
	UserID    string        `json:"user_id,omitempty"`
	Username  string        `json:"username,omitempty"`
	Role      Role          `json:"role,omitempty"`
	ActorID   string        `json:"actor_id,omitempty"`
	RemoteIP  string        `json:"remote_ip,omitempty"`
	Detail    string        `json:"detail,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// ShardKey returns the value used to keep events for one identity in order.
func (e AuthEvent) ShardKey() string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.Username
}
