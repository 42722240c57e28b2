package dedupe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "checkout:idem:"
	pendingMarker = "pending"
	// DefaultKeyTTL bounds how long a client idempotency key is remembered.
	DefaultKeyTTL = 24 * time.Hour
)

// KeyStore remembers client-supplied idempotency keys.
type KeyStore interface {
	// Claim reserves key. When the key was already claimed it returns claimed=false and the
	// order id recorded for it, or "" while the first attempt is still running.
	Claim(ctx context.Context, scope, key string) (claimed bool, orderID string, err error)
	// Complete records the order created under key.
	Complete(ctx context.Context, scope, key, orderID string) error
	// Release forgets key so a failed attempt can be retried.
	Release(ctx context.Context, scope, key string) error
}

// RedisKeyStore implements KeyStore with SET NX.
type RedisKeyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisKeyStore parses redisURL and pings the server.
func NewRedisKeyStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisKeyStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisKeyStoreFromClient(client, ttl), nil
}

func NewRedisKeyStoreFromClient(client *redis.Client, ttl time.Duration) *RedisKeyStore {
	if ttl <= 0 {
		ttl = DefaultKeyTTL
	}
	return &RedisKeyStore{client: client, ttl: ttl}
}

func (s *RedisKeyStore) Close() error { return s.client.Close() }

func (s *RedisKeyStore) Claim(ctx context.Context, scope, key string) (bool, string, error) {
	k := redisKey(scope, key)
	ok, err := s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
	if err != nil {
		return false, "", fmt.Errorf("claim idempotency key: %w", err)
	}
	if ok {
		return true, "", nil
	}
	val, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Expired or released between SETNX and GET; try once more.
		ok, err = s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
		if err != nil {
			return false, "", fmt.Errorf("claim idempotency key: %w", err)
		}
		return ok, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("read idempotency key: %w", err)
	}
	if val == pendingMarker {
		return false, "", nil
	}
	return false, val, nil
}

func (s *RedisKeyStore) Complete(ctx context.Context, scope, key, orderID string) error {
	if err := s.client.Set(ctx, redisKey(scope, key), orderID, s.ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

func (s *RedisKeyStore) Release(ctx context.Context, scope, key string) error {
	if err := s.client.Del(ctx, redisKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func redisKey(scope, key string) string {
	return keyPrefix + NormalizeEmail(scope) + ":" + key
}
