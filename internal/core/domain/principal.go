package domain

import "time"

// Principal is the identity resolved from a verified session token.
type Principal struct {
	UserID    string
	Username  string
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}

// Is reports whether p refers to the identity with the given id.
func (p Principal) Is(id string) bool {
	return p.UserID != "" && p.UserID == id
}
