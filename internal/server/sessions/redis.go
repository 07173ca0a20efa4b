package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/stockpile/internal/common"
	"github.com/go-redis/redis/v8"
)

// RedisStore keeps session records as plain string keys with a native TTL.
//
// The client is owned by the caller. go-redis dials lazily, so no connection
// is made until the first command.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, userID int64, sessionID, secretHash string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("redis put: non-positive ttl %s", ttl)
	}
	if err := s.client.Set(ctx, Key(userID, sessionID), secretHash, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, userID int64, sessionID string) (string, error) {
	v, err := s.client.Get(ctx, Key(userID, sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (s *RedisStore) Delete(ctx context.Context, userID int64, sessionID string) error {
	if err := s.client.Del(ctx, Key(userID, sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
