package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Limiter shared by every server instance using the same Redis
type Redis struct {
	client *redis.Client
	policy Policy
	prefix string
}

// NewRedis creates a Redis limiter from a redis:// URL and checks connectivity
func NewRedis(url string, policy Policy) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("throttle: invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("throttle: redis unreachable: %w", err)
	}

	return NewRedisWithClient(client, policy), nil
}

// NewRedisWithClient wraps an existing client
func NewRedisWithClient(client *redis.Client, policy Policy) *Redis {
	return &Redis{
		client: client,
		policy: policy.normalized(),
		prefix: "login:",
	}
}

func (r *Redis) failKey(key string) string {
	return r.prefix + "fail:" + Key(key)
}

func (r *Redis) lockKey(key string) string {
	return r.prefix + "lock:" + Key(key)
}

// Allowed implements Limiter
func (r *Redis) Allowed(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.lockKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Failure implements Limiter
func (r *Redis) Failure(ctx context.Context, key string) error {
	failKey := r.failKey(key)

	count, err := r.client.Incr(ctx, failKey).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, failKey, r.policy.Window).Err(); err != nil {
			return err
		}
	}

	if count >= int64(r.policy.MaxAttempts) {
		pipe := r.client.TxPipeline()
		pipe.Set(ctx, r.lockKey(key), "1", r.policy.Lockout)
		pipe.Del(ctx, failKey)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Reset implements Limiter
func (r *Redis) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.failKey(key), r.lockKey(key)).Err()
}

// Close releases the Redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}
