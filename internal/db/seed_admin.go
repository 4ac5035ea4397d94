package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/rolegate/internal/domain/user"
)

type AdminStore interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
	Create(ctx context.Context, username, passwordHash string, role user.Role) (user.User, error)
}

type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
}

// EnsureAdminUser creates the bootstrap admin account when credentials are configured.
// An existing account with that username is left untouched.
func EnsureAdminUser(ctx context.Context, store AdminStore, hasher PasswordHasher, username, password string) (created bool, err error) {
	if username == "" || password == "" {
		return false, nil
	}

	// check if the user exists

	_, err = store.GetByUsername(ctx, username)

	if err == nil {
		return false, nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return false, fmt.Errorf("look up admin user: %w", err)
	}

	hash, err := hasher.Hash(ctx, password)

	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	_, err = store.Create(ctx, username, hash, user.RoleAdmin)

	// another replica may have seeded it first
	if errors.Is(err, user.ErrDuplicateUsername) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("create admin user: %w", err)
	}

	return true, nil
}
