package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes passwords and security answers with a configured bcrypt cost.
type Hasher struct {
	cost int
}

// NewHasher falls back to bcrypt.DefaultCost for out-of-range values.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash hashes a plaintext secret.
func (h *Hasher) Hash(plain string) (string, error) {
	return HashPassword(plain, h.cost)
}

// Matches reports whether plain hashes to hashed. Malformed hashes are errors.
func (h *Hasher) Matches(hashed, plain string) (bool, error) {
	err := ComparePassword(hashed, plain)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
