package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/geocoder89/rolegate/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersRepo_CreateAndFind(t *testing.T) {
	repo := NewUsersRepo()
	ctx := context.Background()

	created, err := repo.Create(ctx, "alice", "$2a$10$hash", user.RoleUser)
	require.NoError(t, err)

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created, byName)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, byID)

	_, err = repo.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, user.ErrNotFound)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestUsersRepo_DuplicateUsername(t *testing.T) {
	repo := NewUsersRepo()
	ctx := context.Background()

	_, err := repo.Create(ctx, "alice", "$2a$10$one", user.RoleUser)
	require.NoError(t, err)

	_, err = repo.Create(ctx, "alice", "$2a$10$two", user.RoleAdmin)
	assert.ErrorIs(t, err, user.ErrDuplicateUsername)
	assert.Equal(t, 1, repo.Count())
}

func TestUsersRepo_ValidationLeavesNothingBehind(t *testing.T) {
	repo := NewUsersRepo()
	ctx := context.Background()

	_, err := repo.Create(ctx, "alice", "$2a$10$hash", user.Role("root"))
	assert.ErrorIs(t, err, user.ErrValidation)

	_, err = repo.Create(ctx, "", "$2a$10$hash", user.RoleUser)
	assert.ErrorIs(t, err, user.ErrValidation)

	assert.Equal(t, 0, repo.Count())
}

func TestUsersRepo_ConcurrentCreateSameUsername(t *testing.T) {
	repo := NewUsersRepo()
	ctx := context.Background()

	const workers = 32

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)

	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			_, err := repo.Create(ctx, "alice", "$2a$10$hash", user.RoleUser)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, user.ErrDuplicateUsername):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, dupes)
	assert.Equal(t, 1, repo.Count())
}
