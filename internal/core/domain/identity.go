package domain

import (
	"strings"
	"time"
)

// Role determines the dashboard an identity lands on and the routes it may call.
type Role string

const (
	RoleSuperAdmin          Role = "super_admin"
	RoleAdmin               Role = "admin"
	RoleAccountingFirmOwner Role = "accounting_firm_owner"
	RoleAccountant          Role = "accountant"
)

// Roles lists every role, highest rank first.
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RoleAccountingFirmOwner, RoleAccountant}

var roleRank = map[Role]int{
	RoleSuperAdmin:          4,
	RoleAdmin:               3,
	RoleAccountingFirmOwner: 2,
	RoleAccountant:          1,
}

// ParseRole normalises s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	_, ok := roleRank[r]
	return r, ok
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Outranks reports whether r sits strictly above other in the hierarchy.
// Unknown roles never outrank anything.
func (r Role) Outranks(other Role) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	return rank > roleRank[other]
}

func (r Role) String() string { return string(r) }

// Status is the lifecycle flag of an identity. Identities are never hard-deleted.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusInvited  Status = "invited"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusInvited:
		return true
	}
	return false
}

// CanLogin reports whether an identity in this status may obtain a session token.
func (s Status) CanLogin() bool {
	return s == StatusActive || s == StatusInvited
}

// ValidUsername reports whether u can be stored as a username. Usernames may
// not contain "@" so a login string is never both a username and an email.
func ValidUsername(u string) bool {
	u = strings.TrimSpace(u)
	return u != "" && !strings.Contains(u, "@")
}

// IsEmailLogin reports whether a login string is matched against emails
// rather than usernames.
func IsEmailLogin(login string) bool {
	return strings.Contains(login, "@")
}

// Identity is a stored user record with credentials and a role.
type Identity struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	DisplayName  string     `json:"display_name,omitempty"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Status       Status     `json:"status"`
	InvitedBy    string     `json:"invited_by,omitempty"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IdentityFilter narrows identity listings. Zero values mean "no filter".
type IdentityFilter struct {
	Role   Role
	Status Status
	Search string // partial, case-insensitive match on email, username or display name
	Page   int    // 1-based
	Limit  int
}
