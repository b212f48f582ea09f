package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/layer-3/starnotary/ports"
	"github.com/redis/go-redis/v9"
)

// compareAndSwapScript swaps KEYS[1] from ARGV[1] to ARGV[2] in one round trip.
var compareAndSwapScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2])
	return 1
end
return 0
`)

// RedisStore is a Redis implementation of the StateStore interface.
// Keys never expire; grants and challenges only change by state transition.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "starnotary:",
	}
}

var _ ports.StateStore = (*RedisStore)(nil)

// Get retrieves a value by key
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores a value without expiration
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// SetNX stores a value only if the key does not exist yet
func (s *RedisStore) SetNX(ctx context.Context, key, value string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to setnx %s: %w", key, err)
	}
	return ok, nil
}

// CompareAndSwap replaces the value under key if it still equals old
func (s *RedisStore) CompareAndSwap(ctx context.Context, key, old, new string) (bool, error) {
	swapped, err := compareAndSwapScript.Run(ctx, s.client, []string{s.prefix + key}, old, new).Int()
	if err != nil {
		return false, fmt.Errorf("failed to compare and swap %s: %w", key, err)
	}
	return swapped == 1, nil
}
