// Package redisrepo stores user records in Redis.
//
// Layout:
//
//	rolegate:user:username:<username> -> <id>          (string, uniqueness index)
//	rolegate:user:id:<id>             -> hash of fields (the record)
//
// Both keys are written by one Lua script, so no other command runs between the
// username claim and the record write. The script has no rollback step.
// Targets a single Redis instance; the keys do not share a hash slot.
package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/rolegate/internal/domain/user"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rolegate:user:"

var createUserScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[2],
	'id', ARGV[1],
	'username', ARGV[2],
	'password_hash', ARGV[3],
	'role', ARGV[4],
	'created_at', ARGV[5],
	'updated_at', ARGV[6])
return 1
`)

type UsersRepo struct {
	rdb *redis.Client
}

func NewUsersRepo(rdb *redis.Client) *UsersRepo {
	return &UsersRepo{rdb: rdb}
}

func usernameKey(username string) string {
	return keyPrefix + "username:" + username
}

func idKey(id string) string {
	return keyPrefix + "id:" + id
}

func (r *UsersRepo) Create(ctx context.Context, username, passwordHash string, role user.Role) (user.User, error) {
	u, err := user.New(username, passwordHash, role)
	if err != nil {
		return user.User{}, err
	}

	created, err := createUserScript.Run(ctx, r.rdb,
		[]string{usernameKey(u.Username), idKey(u.ID)},
		u.ID,
		u.Username,
		u.PasswordHash,
		string(u.Role),
		u.CreatedAt.Format(time.RFC3339Nano),
		u.UpdatedAt.Format(time.RFC3339Nano),
	).Int()

	if err != nil {
		return user.User{}, fmt.Errorf("redis create user: %w", err)
	}

	if created == 0 {
		return user.User{}, user.ErrDuplicateUsername
	}

	return u, nil
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	id, err := r.rdb.Get(ctx, usernameKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("redis get username index: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	fields, err := r.rdb.HGetAll(ctx, idKey(id)).Result()
	if err != nil {
		return user.User{}, fmt.Errorf("redis get user: %w", err)
	}

	if len(fields) == 0 {
		return user.User{}, user.ErrNotFound
	}

	return decodeUser(fields)
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func decodeUser(fields map[string]string) (user.User, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return user.User{}, fmt.Errorf("decode created_at: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return user.User{}, fmt.Errorf("decode updated_at: %w", err)
	}

	return user.User{
		ID:           fields["id"],
		Username:     fields["username"],
		PasswordHash: fields["password_hash"],
		Role:         user.Role(fields["role"]),
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}
