// Package bus fans outbound frames across the node fleet. A frame published
// for a user reaches every node's subscriber; only the node holding that
// user's connection does anything with it.
package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"chathub/contract"
	"chathub/domain"
)

const channelPrefix = "user:"

// Redis is the production bus: one Redis pub/sub channel per addressed
// user, one pattern subscription per node. Fire-and-forget, at-most-once.
type Redis struct {
	client     *redis.Client
	log        *slog.Logger
	bufferSize int
}

func NewRedis(client *redis.Client, log *slog.Logger, bufferSize int) *Redis {
	return &Redis{client: client, log: log, bufferSize: bufferSize}
}

func (b *Redis) Publish(ctx context.Context, userID string, frame domain.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channelPrefix+userID, data).Err()
}

// Subscribe opens the node's single pattern subscription over the whole
// user-channel space. The returned channel closes when ctx is canceled.
// Payloads that fail to decode are logged and skipped; one bad publisher
// must not stall the feed.
func (b *Redis) Subscribe(ctx context.Context) (<-chan contract.Delivery, error) {
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan contract.Delivery, b.bufferSize)
	in := pubsub.Channel()

	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				userID := strings.TrimPrefix(msg.Channel, channelPrefix)
				var frame domain.Frame
				if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
					b.log.Warn("Dropping undecodable bus payload", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- contract.Delivery{UserID: userID, Frame: frame}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
