package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const invitePrefix = "prepwise:invite:"

// consumeScript deletes the invite only when the code matches, so a wrong
// guess never burns a valid invite
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisInviteStore keeps invites as Redis keys that expire on their own
type RedisInviteStore struct {
	rdb *redis.Client
}

// NewRedisInviteStore wraps an existing client
func NewRedisInviteStore(rdb *redis.Client) *RedisInviteStore {
	return &RedisInviteStore{rdb: rdb}
}

func (s *RedisInviteStore) PutInvite(ctx context.Context, student, code string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return errors.New("invite already expired")
	}
	return s.rdb.Set(ctx, invitePrefix+student, code, ttl).Err()
}

func (s *RedisInviteStore) ConsumeInvite(ctx context.Context, student, code string, now time.Time) error {
	n, err := consumeScript.Run(ctx, s.rdb, []string{invitePrefix + student}, code).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidInvite
	}
	return nil
}
