package workers

import (
	"context"
	"log/slog"
	"time"

	"chathub/contract"
)

// PresenceHeartbeatWorker refreshes the presence TTL entry of every user
// connected to this node. The refresh interval must stay well under the
// presence TTL or live users flap offline.
type PresenceHeartbeatWorker struct {
	log      *slog.Logger
	registry contract.IRegistry
	presence contract.Presence
	interval time.Duration
}

func NewPresenceHeartbeatWorker(log *slog.Logger, registry contract.IRegistry,
	presence contract.Presence, interval time.Duration) *PresenceHeartbeatWorker {
	return &PresenceHeartbeatWorker{log: log, registry: registry, presence: presence, interval: interval}
}

func (w *PresenceHeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting presence heartbeat worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, userID := range w.registry.Users() {
				if err := w.presence.MarkOnline(ctx, userID); err != nil {
					w.log.Warn("Presence refresh failed", "userId", userID, "error", err)
				}
			}
		}
	}
}
