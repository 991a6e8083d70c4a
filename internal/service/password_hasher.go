package service

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 12

// PasswordHasher hashes and verifies passwords with bcrypt.
type PasswordHasher struct {
	cost  int
	dummy []byte
}

// NewPasswordHasher builds a hasher with the given cost. It precomputes a hash
// used to keep the unknown-user path as expensive as a real comparison.
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, appErrors.Clone(appErrors.ErrConfig, "bcrypt cost out of range")
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("stemkit-identity-placeholder"), cost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConfig.Code, appErrors.ErrConfig.Status, "failed to initialise password hasher")
	}
	return &PasswordHasher{cost: cost, dummy: dummy}, nil
}

// Hash returns the bcrypt hash of plain.
func (h *PasswordHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plain matches hash. A hash that bcrypt cannot parse
// yields ErrCryptoFormat.
func (h *PasswordHasher) Verify(plain, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, appErrors.Wrap(err, appErrors.ErrCryptoFormat.Code, appErrors.ErrCryptoFormat.Status, appErrors.ErrCryptoFormat.Message)
	}
}

// Burn performs a comparison against the placeholder hash and discards the result.
func (h *PasswordHasher) Burn(plain string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
}
