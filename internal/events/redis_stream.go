package events

import (
	"context"
	"fmt"

	rediscommon "dental-ledger/common/redis"

	"github.com/go-redis/redis/v8"
)

// RedisStreamPublisher appends ledger events to a Redis stream
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamPublisher maxLen > 0 trims the stream approximately
func NewRedisStreamPublisher(client *redis.Client, stream string, maxLen int64) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

var _ Publisher = (*RedisStreamPublisher)(nil)

// Publish XADD {type, data, timestamp}
func (p *RedisStreamPublisher) Publish(ctx context.Context, ev LedgerEvent) error {
	if _, err := rediscommon.PublishJSONToStream(ctx, p.client, p.stream, p.maxLen, string(ev.Type), ev); err != nil {
		return fmt.Errorf("failed to publish %s to stream %s: %w", ev.Type, p.stream, err)
	}
	return nil
}

// Close closes the underlying client
func (p *RedisStreamPublisher) Close() error {
	return rediscommon.Close(p.client)
}
