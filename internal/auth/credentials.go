// Package auth holds the credential and biometric collaborators of the
// record store.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned by Verify when the password does not match.
var ErrMismatch = errors.New("password does not match")

// Credentials turns passwords into stored hashes and checks them later.
type Credentials interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
}

// Insecure keeps the demo contract: nothing is stored and every password is
// accepted.
type Insecure struct{}

func (Insecure) Hash(string) (string, error) { return "", nil }

func (Insecure) Verify(string, string) error { return nil }

// Bcrypt hashes passwords with golang.org/x/crypto/bcrypt.
type Bcrypt struct {
	Cost int
}

func NewBcrypt() Bcrypt {
	return Bcrypt{Cost: bcrypt.DefaultCost}
}

func (b Bcrypt) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (Bcrypt) Verify(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	return nil
}
