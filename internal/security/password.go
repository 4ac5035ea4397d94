package security

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/geocoder89/rolegate/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultCost keeps verification in the tens of milliseconds on commodity hardware.
const DefaultCost = 10

// maxSaltAttempts bounds re-salting when a digest happens to contain the plaintext.
const maxSaltAttempts = 32

// Hasher hashes and verifies passwords with bcrypt.
// At most maxConcurrent bcrypt computations run at once; callers beyond that wait
// for a slot or for their context to end.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

func NewHasher(cost int, maxConcurrent int64) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}

	if maxConcurrent <= 0 {
		maxConcurrent = int64(runtime.GOMAXPROCS(0))
	}

	return &Hasher{
		cost: cost,
		sem:  semaphore.NewWeighted(maxConcurrent),
	}
}

// Hash password hashes a plain text password with bcrypt.
// The returned digest never contains plain. Short passwords can appear in the
// salt or checksum by chance and are re-salted; passwords that are part of
// bcrypt's fixed "$2a$NN$" prefix can never be stored and fail validation.
func (h *Hasher) Hash(ctx context.Context, plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("%w: password is required", user.ErrValidation)
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("wait for hashing slot: %w", err)
	}
	defer h.sem.Release(1)

	for attempt := 0; attempt < maxSaltAttempts; attempt++ {
		hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
		if err != nil {
			if errors.Is(err, bcrypt.ErrPasswordTooLong) {
				return "", fmt.Errorf("%w: password must be at most 72 bytes", user.ErrValidation)
			}
			return "", err
		}

		if !strings.Contains(string(hash), plain) {
			return string(hash), nil
		}

		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("hash password: %w", err)
		}
	}

	return "", fmt.Errorf("%w: password cannot be stored safely, choose a longer one", user.ErrValidation)
}

// Verify compares a bcrypt hash with a plaintext password.
// A malformed hash or a cancelled context simply fails verification.
func (h *Hasher) Verify(ctx context.Context, plain, hash string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
