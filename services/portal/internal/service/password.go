package service

import (
	"errors"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/diagnosis/institute-portal/pkg/config"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes new passwords with the configured algorithm and
// compares against both argon2id and legacy bcrypt hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(password, hash string) (bool, error)
}

type passwordHasher struct {
	algorithm  string
	bcryptCost int
}

func NewPasswordHasher(cfg config.PasswordConfig) PasswordHasher {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &passwordHasher{algorithm: strings.ToLower(cfg.Hasher), bcryptCost: cost}
}

func (h *passwordHasher) Hash(password string) (string, error) {
	if h.algorithm == "bcrypt" {
		b, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return argon2id.CreateHash(password, argon2id.DefaultParams)
}

func (h *passwordHasher) Compare(password, hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		return argon2id.ComparePasswordAndHash(password, hash)
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	default:
		return false, nil
	}
}
