package presence

import (
	"context"
	"sync"
	"time"
)

// Memory is the single-node presence tracker used in tests and in-process
// deployments. Entries expire lazily on read, mirroring the TTL semantics
// of the Redis tracker.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, entries: make(map[string]time.Time)}
}

func (p *Memory) MarkOnline(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[userID] = time.Now().Add(p.ttl)
	return nil
}

func (p *Memory) MarkOffline(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, userID)
	return nil
}

func (p *Memory) IsOnline(_ context.Context, userID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	deadline, ok := p.entries[userID]
	if !ok {
		return false, nil
	}
	if time.Now().After(deadline) {
		delete(p.entries, userID)
		return false, nil
	}
	return true, nil
}
