package inbound

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduper remembers processed provider message IDs so redelivered
// webhooks are acknowledged without being reprocessed.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper. TTL bounds how long a message ID is
// remembered; provider retries happen well inside 24 hours.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

// Seen marks the message ID as processed and reports whether it had already
// been marked before this call.
func (d *RedisDeduper) Seen(ctx context.Context, messageID string) (bool, error) {
	key := "inbound:processed:" + messageID
	set, err := d.client.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("inbound: dedupe %s: %w", messageID, err)
	}
	return !set, nil
}
