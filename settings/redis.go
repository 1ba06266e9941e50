package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisKey is the key holding the host list.
const DefaultRedisKey = "pingwatch:hosts"

// RedisStore keeps the host list as JSON under a single Redis key.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Load reads the host list. A missing key yields an empty list.
func (s *RedisStore) Load(ctx context.Context) ([]Host, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hosts from redis: %w", err)
	}

	var hosts []Host
	if err := json.Unmarshal(data, &hosts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal hosts from redis: %w", err)
	}
	return hosts, nil
}

// Save replaces the stored host list.
func (s *RedisStore) Save(ctx context.Context, hosts []Host) error {
	data, err := json.Marshal(hosts)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save hosts to redis: %w", err)
	}
	return nil
}
