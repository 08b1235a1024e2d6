package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockoutThreshold = 5
	lockoutWindow    = 15 * time.Minute
)

// RedisLoginLimiter counts failed login attempts per email in redis. Once the
// threshold is hit the identity is treated as locked until the window expires.
type RedisLoginLimiter struct {
	client *redis.Client
}

var _ LoginLimiter = (*RedisLoginLimiter)(nil)

func NewRedisLoginLimiter(client *redis.Client) *RedisLoginLimiter {
	return &RedisLoginLimiter{client: client}
}

func (l *RedisLoginLimiter) key(email string) string {
	return fmt.Sprintf("login_failures:%s", email)
}

func (l *RedisLoginLimiter) RecordFailure(ctx context.Context, email string) (bool, error) {
	key := l.key(email)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, lockoutWindow).Err(); err != nil {
			return false, err
		}
	}

	return count >= lockoutThreshold, nil
}

func (l *RedisLoginLimiter) IsLocked(ctx context.Context, email string) (bool, error) {
	count, err := l.client.Get(ctx, l.key(email)).Int64()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}

	return count >= lockoutThreshold, nil
}

func (l *RedisLoginLimiter) Reset(ctx context.Context, email string) error {
	return l.client.Del(ctx, l.key(email)).Err()
}
