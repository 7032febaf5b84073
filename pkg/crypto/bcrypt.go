package crypto

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

type BcryptOptions struct {
	Cost int
}

type BcryptHasher struct {
	options BcryptOptions
}

func DefaultBcryptOptions() BcryptOptions {
	return BcryptOptions{
		Cost: 10,
	}
}

func NewBcryptHasher(options BcryptOptions) *BcryptHasher {
	defaults := DefaultBcryptOptions()

	if options.Cost < bcrypt.MinCost || options.Cost > bcrypt.MaxCost {
		options.Cost = defaults.Cost
	}

	return &BcryptHasher{
		options: options,
	}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if h == nil {
		return "", ErrInvalidConfig
	}
	if password == "" {
		return "", ErrInvalidConfig
	}

	encoded, err := bcrypt.GenerateFromPassword([]byte(password), h.options.Cost)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func (h *BcryptHasher) Verify(password string, encodedHash string) (bool, error) {
	if h == nil {
		return false, ErrInvalidConfig
	}
	if password == "" {
		return false, ErrInvalidConfig
	}

	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, ErrInvalidHash
}
