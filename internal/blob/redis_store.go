package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tenf/portal/internal/logging"
	"tenf/portal/internal/metrics"
)

// RedisStore keeps one hash per store: HSET blob:<store> <key> <json>.
type RedisStore struct {
	client  *redis.Client
	metrics *metrics.MetricsRegistry
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, m *metrics.MetricsRegistry) *RedisStore {
	return &RedisStore{client: client, metrics: m}
}

func (s *RedisStore) Backend() string { return "redis" }

func hashKey(store string) string { return "blob:" + store }

func (s *RedisStore) Get(ctx context.Context, store, key string, out any) bool {
	if store == "" || key == "" {
		return false
	}
	data, err := s.client.HGet(ctx, hashKey(store), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		s.readFailed(store, key, err)
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.readFailed(store, key, err)
		return false
	}
	return true
}

func (s *RedisStore) Set(ctx context.Context, store, key string, v any) error {
	if store == "" || key == "" {
		return ErrInvalidKey
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", store, key, err)
	}
	if err := s.client.HSet(ctx, hashKey(store), key, data).Err(); err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", store, key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, store, key string) error {
	if err := s.client.HDel(ctx, hashKey(store), key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", store, key, err)
	}
	return nil
}

func (s *RedisStore) Keys(ctx context.Context, store string) ([]string, error) {
	keys, err := s.client.HKeys(ctx, hashKey(store)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list store %s: %w", store, err)
	}
	return keys, nil
}

func (s *RedisStore) readFailed(store, key string, err error) {
	logging.Warn("Blob read failed, treating as absent",
		"backend", "redis", "store", store, "key", key, "error", err.Error())
	if s.metrics != nil {
		s.metrics.BlobReadFailures.WithLabelValues(store).Inc()
	}
}
