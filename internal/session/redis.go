package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis. Unlike MemoryStore, abandoned
// records expire after the configured TTL instead of lingering until the
// next Put. Take relies on GETDEL for exactly-once consumption.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(host string, port int, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Put stores the pending URL for the user with a TTL, replacing any
// existing record.
func (s *RedisStore) Put(ctx context.Context, userID int64, url string) error {
	return s.client.Set(ctx, sessionKey(userID), url, s.ttl).Err()
}

// Take consumes and clears the pending URL for the user.
func (s *RedisStore) Take(ctx context.Context, userID int64) (string, bool, error) {
	url, err := s.client.GetDel(ctx, sessionKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to take session: %w", err)
	}
	return url, true, nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("session:%d", userID)
}
