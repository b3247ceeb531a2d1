package bus

import (
	"context"
	"log/slog"
	"sync"

	"chathub/contract"
	"chathub/domain"
)

// Memory is the in-process bus used for single-node deployments and tests.
// Same contract as the Redis bus: at-most-once, no backlog; a subscriber
// whose buffer is full loses the event.
type Memory struct {
	mu          sync.Mutex
	log         *slog.Logger
	bufferSize  int
	subscribers map[int]chan contract.Delivery
	nextID      int
}

func NewMemory(log *slog.Logger, bufferSize int) *Memory {
	return &Memory{
		log:         log,
		bufferSize:  bufferSize,
		subscribers: make(map[int]chan contract.Delivery),
	}
}

func (b *Memory) Publish(_ context.Context, userID string, frame domain.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subscribers {
		select {
		case sub <- contract.Delivery{UserID: userID, Frame: frame}:
		default:
			b.log.Warn("Subscriber buffer full, dropping event", "userId", userID, "type", frame.Type)
		}
	}
	return nil
}

func (b *Memory) Subscribe(ctx context.Context) (<-chan contract.Delivery, error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan contract.Delivery, b.bufferSize)
	b.subscribers[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}
