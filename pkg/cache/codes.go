package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCodeNotFound is returned when a code is absent or expired.
var ErrCodeNotFound = errors.New("code not found")

// CodeStore is a TTL-expiring key-value capability used for short-lived
// verification codes (password reset). Entries vanish on expiry; there is no
// process-local fallback.
type CodeStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// RedisCodeStore implements CodeStore on a Redis client.
type RedisCodeStore struct {
	client *redis.Client
	prefix string
}

// NewRedisCodeStore constructs a store namespaced under the given prefix.
func NewRedisCodeStore(client *redis.Client, prefix string) *RedisCodeStore {
	if prefix == "" {
		prefix = "codes"
	}
	return &RedisCodeStore{client: client, prefix: prefix}
}

func (s *RedisCodeStore) key(key string) string {
	return s.prefix + ":" + key
}

// Set stores the value under key for the given TTL.
func (s *RedisCodeStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(key), value, ttl).Err()
}

// Get fetches a live value or ErrCodeNotFound when absent/expired.
func (s *RedisCodeStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCodeNotFound
		}
		return "", err
	}
	return val, nil
}

// Delete removes the key; deleting an absent key is not an error.
func (s *RedisCodeStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}
