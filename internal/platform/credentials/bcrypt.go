// Package credentials hashea y compara secretos de usuario con bcrypt.
package credentials

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const DefaultCost = 12

var (
	ErrMismatch         = errors.New("password does not match")
	ErrMalformedHash    = errors.New("stored password hash is malformed")
	ErrPasswordTooLong  = errors.New("password is longer than 72 bytes")
	ErrPasswordRequired = errors.New("password is required")
)

type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type Bcrypt struct {
	cost int
}

// NewBcrypt: cost <= 0 usa DefaultCost; fuera de rango se acota a [MinCost, MaxCost].
func NewBcrypt(cost int) *Bcrypt {
	switch {
	case cost <= 0:
		cost = DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Bcrypt{cost: cost}
}

func (b *Bcrypt) Cost() int { return b.cost }

func (b *Bcrypt) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrPasswordRequired
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(out), nil
}

// Compare es de tiempo constante respecto del contenido del password.
func (b *Bcrypt) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrMismatch
	case errors.Is(err, bcrypt.ErrHashTooShort):
		return ErrMalformedHash
	default:
		// versión/costo inválidos
		return fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
}
