package workers

import (
	"context"
	"log/slog"

	"chathub/contract"
)

// FanoutWorker is the node's single bus subscriber. Every delivery is
// resolved against the local registry: a hit pushes the frame onto that
// session's serialized write path, a miss means the user is connected
// elsewhere (or offline) and the event is silently discarded. This is the
// whole cross-node delivery mechanism; nodes never address each other
// directly.
type FanoutWorker struct {
	log      *slog.Logger
	bus      contract.Bus
	registry contract.IRegistry
}

func NewFanoutWorker(log *slog.Logger, bus contract.Bus, registry contract.IRegistry) *FanoutWorker {
	return &FanoutWorker{log: log, bus: bus, registry: registry}
}

func (w *FanoutWorker) Run(ctx context.Context) error {
	deliveries, err := w.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	w.log.Info("Fan-out subscriber started")

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fan-out")
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return nil
			}
			sess, found := w.registry.Lookup(delivery.UserID)
			if !found {
				// Not hosted here; another node delivers or nobody does.
				continue
			}
			if err := sess.Send(delivery.Frame); err != nil {
				w.log.Debug("Push to session failed", "userId", delivery.UserID, "error", err)
			}
		}
	}
}
