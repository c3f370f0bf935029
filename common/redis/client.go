package redis

import (
	"context"
	"fmt"
	"time"

	"dental-ledger/common/config"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient short timeouts and no client retries: a failed XADD is reported
// to the caller instead of being replayed behind its back
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		MaxRetries:   -1,
	})
}

// Ping fails with the address in the message so startup errors are readable
func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", client.Options().Addr, err)
	}
	return nil
}

func Close(client *redis.Client) error {
	return client.Close()
}
