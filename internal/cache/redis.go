package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/sheetload/internal/common"
)

// Redis implements Cache on a go-redis client.
type Redis struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewRedis connects to the configured server.
func NewRedis(cfg common.RedisConfig, logger *slog.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	return NewRedisFromClient(client, logger)
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client redis.UniversalClient, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, logger: logger}
}

func (r *Redis) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return wrap("set", key, err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("get", key, err)
	}
	return v, true, nil
}

// SAdd keeps shards in a list so that equal shards are not collapsed.
func (r *Redis) SAdd(ctx context.Context, key string, values []string, ttl time.Duration) (bool, error) {
	if len(values) == 0 {
		return false, nil
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	var push *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		push = p.RPush(ctx, key, args...)
		if ttl > 0 {
			p.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return false, wrap("rpush", key, err)
	}
	return push.Val() > 0, nil
}

func (r *Redis) SMembers(ctx context.Context, key string) ([]string, error) {
	vals, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, wrap("lrange", key, err)
	}
	return vals, nil
}

func (r *Redis) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, wrap("setnx", key, err)
	}
	return ok, nil
}

func (r *Redis) Del(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, wrap("del", key, err)
	}
	return n > 0, nil
}

// Ping checks connectivity, bounded by timeout when positive.
func (r *Redis) Ping(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	r.logger.Debug("pinging redis")
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", common.ErrCache, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func wrap(op, key string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", common.ErrCache, op, key, err)
}
