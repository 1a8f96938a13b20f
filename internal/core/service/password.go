package service

import (
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted when one is set or changed.
const MinPasswordLength = 8

// PasswordHasher wraps bcrypt with a fixed cost.
type PasswordHasher struct {
	cost  int
	dummy []byte
}

// NewPasswordHasher returns a hasher using cost, falling back to bcrypt.DefaultCost when
// cost is out of bcrypt's range. A throwaway hash of the same cost is prepared so that
// lookups for unknown identities spend the same time comparing as real ones.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("finaid-hub/unknown-identity"), cost)
	if err != nil {
		panic("password hasher: " + err.Error())
	}
	return &PasswordHasher{cost: cost, dummy: dummy}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare reports whether password matches hash.
func (h *PasswordHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CompareDummy burns one comparison against the throwaway hash.
func (h *PasswordHasher) CompareDummy(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}
