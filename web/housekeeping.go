package web

import (
	"context"
	"time"

	"agenthub/config"
	"agenthub/engine"
	"agenthub/session"

	"go.uber.org/zap"
)

// StartHousekeeping periodically sweeps leaked stream states and asks the
// engine to prune old empty sessions. Both are backstops: the primary
// cleanup happens on each stream's own finalize/abort/timeout path and on
// every new chat. Blocks until ctx is cancelled; run in a goroutine.
func StartHousekeeping(ctx context.Context, cfg *config.Config, orchestrator *session.Orchestrator, client engine.Client, logger *zap.Logger) {
	if !cfg.HousekeepingEnabled {
		logger.Info("Housekeeping disabled")
		return
	}

	ticker := time.NewTicker(cfg.HousekeepingInterval)
	defer ticker.Stop()

	logger.Info("Housekeeping started",
		zap.Duration("interval", cfg.HousekeepingInterval),
		zap.Duration("prune_max_age", cfg.PruneMaxAge))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if swept := orchestrator.SweepStaleStreams(); swept > 0 {
				logger.Warn("Housekeeping swept stale streams", zap.Int("count", swept))
			}

			pruneCtx, cancel := context.WithTimeout(ctx, cfg.EngineRequestTimeout)
			count, err := client.PruneEmptySessions(pruneCtx, cfg.PruneMaxAge, orchestrator.ActiveSession())
			cancel()
			if err != nil {
				logger.Warn("Housekeeping prune failed", zap.Error(err))
				continue
			}
			if count > 0 {
				logger.Info("Housekeeping pruned empty sessions", zap.Int("count", count))
			}
		}
	}
}
