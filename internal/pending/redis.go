package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps pending actions in Redis so they survive restarts and
// are shared between replicas. Take uses GETDEL, so two concurrent logins
// cannot both resume the same action.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: "pending:", ttl: ttl}
}

func (s *RedisStore) key(visitor string) string {
	return s.prefix + visitor
}

func (s *RedisStore) Remember(ctx context.Context, key string, action Action) error {
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("marshal pending action: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save pending action: %w", err)
	}
	return nil
}

func (s *RedisStore) Take(ctx context.Context, key string) (*Action, error) {
	raw, err := s.client.GetDel(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("take pending action: %w", err)
	}
	var action Action
	if err := json.Unmarshal(raw, &action); err != nil {
		return nil, fmt.Errorf("unmarshal pending action: %w", err)
	}
	return &action, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks that Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
