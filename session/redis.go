package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps each session in one hash whose TTL is refreshed on
// every write.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStorage connects to redisURL and pings it before returning.
func NewRedisStorage(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStorage{client: client, prefix: "storefront:session:", ttl: ttl}, nil
}

func (r *RedisStorage) key(sid string) string { return r.prefix + sid }

func (r *RedisStorage) Get(ctx context.Context, sid, key string) ([]byte, error) {
	v, err := r.client.HGet(ctx, r.key(sid), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session value: %w", err)
	}
	return v, nil
}

func (r *RedisStorage) Set(ctx context.Context, sid, key string, value []byte) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.key(sid), key, value)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key(sid), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write session value: %w", err)
	}
	return nil
}

func (r *RedisStorage) Delete(ctx context.Context, sid string, keys ...string) error {
	var err error
	if len(keys) == 0 {
		err = r.client.Del(ctx, r.key(sid)).Err()
	} else {
		err = r.client.HDel(ctx, r.key(sid), keys...).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to delete session value: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
