package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"chathub/contract"
)

// ReporterWorker periodically logs the node's own vitals (CPU, RSS, OS
// status) together with the number of hosted connections.
type ReporterWorker struct {
	log      *slog.Logger
	registry contract.IRegistry
	interval time.Duration
}

func NewReporterWorker(log *slog.Logger, registry contract.IRegistry, interval time.Duration) *ReporterWorker {
	return &ReporterWorker{log: log, registry: registry, interval: interval}
}

func (w *ReporterWorker) Run(ctx context.Context) error {
	w.log.Info("Starting node stats reporter")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, status, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.log.Info("Node stats",
				"connections", w.registry.Len(),
				"cpuPercent", cpu,
				"ramBytes", rss,
				"pidStatus", status,
			)
		}
	}
}

// selfStats retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func selfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
