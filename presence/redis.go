// Package presence tracks advisory online status shared across nodes.
// Absence of a live entry means offline; staleness is bounded by the TTL.
package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "user:online:"

// Redis stores one TTL key per online user. The heartbeat worker refreshes
// the key while the connection lives, so a crashed node's users fall
// offline within one TTL without any explicit cleanup.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (p *Redis) MarkOnline(ctx context.Context, userID string) error {
	return p.client.Set(ctx, keyPrefix+userID, "1", p.ttl).Err()
}

func (p *Redis) MarkOffline(ctx context.Context, userID string) error {
	return p.client.Del(ctx, keyPrefix+userID).Err()
}

func (p *Redis) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := p.client.Exists(ctx, keyPrefix+userID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
