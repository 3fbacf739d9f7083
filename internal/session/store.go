package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps a bounded, most-recent-first list of tokens per user.
type Store interface {
	Push(ctx context.Context, userID int64, token string, keep int, ttl time.Duration) error
	List(ctx context.Context, userID int64) ([]string, error)
	Drop(ctx context.Context, userID int64) error
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func tokensKey(userID int64) string {
	return fmt.Sprintf("MG_TOKENS_FOR_USER_%d", userID)
}

// Push prepends token, trims the list to keep entries and resets its
// lifetime, all inside one MULTI so concurrent pushes for a user serialize.
// A zero ttl leaves the list without expiry.
func (s *RedisStore) Push(ctx context.Context, userID int64, token string, keep int, ttl time.Duration) error {
	key := tokensKey(userID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, token)
		pipe.LTrim(ctx, key, 0, int64(keep-1))
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		} else {
			pipe.Persist(ctx, key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push token for user %d: %w", userID, err)
	}
	return nil
}

// List returns the user's tokens, newest first. A missing key yields an
// empty slice.
func (s *RedisStore) List(ctx context.Context, userID int64) ([]string, error) {
	tokens, err := s.rdb.LRange(ctx, tokensKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens for user %d: %w", userID, err)
	}
	return tokens, nil
}

func (s *RedisStore) Drop(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, tokensKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to drop tokens for user %d: %w", userID, err)
	}
	return nil
}
