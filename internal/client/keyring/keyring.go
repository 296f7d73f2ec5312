// Package keyring keeps the identity token in the operating system keyring.
package keyring

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/weeklog/internal/common"
	"github.com/zalando/go-keyring"
)

var (
	// ErrNotFound is returned when no token is stored.
	ErrNotFound = errors.New("token not found in keyring")
	// ErrUnavailable is returned when the OS keyring cannot be used.
	ErrUnavailable = errors.New("OS keyring is not available")
)

// Store reads and writes one secret under a service/user pair.
type Store struct {
	service string
	user    string
}

// New returns the store used for the identity token.
func New() *Store {
	return &Store{service: common.AppName, user: common.KeyringUser}
}

func (s *Store) Get() (string, error) {
	v, err := keyring.Get(s.service, s.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, nil
}

func (s *Store) Set(token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	if err := keyring.Set(s.service, s.user, token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

// Delete removes the token. Deleting a missing token is not an error.
func (s *Store) Delete() error {
	err := keyring.Delete(s.service, s.user)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

// Token implements auth.TokenSource.
func (s *Store) Token(context.Context) (string, error) {
	return s.Get()
}
