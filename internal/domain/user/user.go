package user

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxUsernameLength bounds usernames in bytes.
const MaxUsernameLength = 64

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,max=72"`
	Role     string `json:"role" binding:"required,oneof=admin moderator user"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidRole        = fmt.Errorf("%w: invalid role", ErrValidation)
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidateUsername reports ErrValidation for empty, padded or oversized usernames.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}

	if strings.TrimSpace(username) != username {
		return fmt.Errorf("%w: username must not start or end with whitespace", ErrValidation)
	}

	if len(username) > MaxUsernameLength {
		return fmt.Errorf("%w: username must be at most %d bytes", ErrValidation, MaxUsernameLength)
	}

	return nil
}

// New builds a user record ready for insertion, with a fresh id and UTC timestamps.
func New(username, passwordHash string, role Role) (User, error) {
	if err := ValidateUsername(username); err != nil {
		return User{}, err
	}

	if passwordHash == "" {
		return User{}, fmt.Errorf("%w: password hash is required", ErrValidation)
	}

	if !role.Valid() {
		return User{}, ErrInvalidRole
	}

	now := time.Now().UTC()

	return User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
