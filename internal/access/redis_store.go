package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/frahmantamala/marketplace/internal/module"
)

const redisKeyPrefix = "access:module:"

// RedisStore shares directory entries between instances. Expiry is left to
// the server so every instance sees the same lifetime.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

var _ Store = (*RedisStore)(nil)

func redisKey(name string) string {
	return redisKeyPrefix + name
}

func (s *RedisStore) Get(ctx context.Context, name string) (*module.Module, bool, error) {
	data, err := s.client.Get(ctx, redisKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var m module.Module
	if err := json.Unmarshal(data, &m); err != nil {
		// corrupt payloads are dropped and treated as a miss
		s.client.Del(ctx, redisKey(name))
		return nil, false, nil
	}
	return &m, true, nil
}

func (s *RedisStore) Set(ctx context.Context, name string, m *module.Module, ttl time.Duration) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal module: %w", err)
	}
	return s.client.Set(ctx, redisKey(name), data, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = redisKey(name)
	}
	return s.client.Del(ctx, keys...).Err()
}
