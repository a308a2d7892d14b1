package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrPasswordMismatch = errors.New("password mismatch")

// Hasher hashes and verifies passwords with bcrypt at a fixed cost.
type Hasher struct {
	Cost int
}

func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return Hasher{Cost: cost}
}

func (h Hasher) Hash(p string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), h.Cost)
	return string(b), err
}

// Verify returns ErrPasswordMismatch for a wrong password and other errors
// for a malformed hash.
func (h Hasher) Verify(plain, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

func HashPassword(p string) (string, error) { return NewHasher(bcrypt.DefaultCost).Hash(p) }

func VerifyPassword(plain, hash string) error { return NewHasher(bcrypt.DefaultCost).Verify(plain, hash) }
