package app

import (
	"context"
	"time"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/interfaces"
)

// sessionSweeper is the part of the chat service the scheduler drives.
type sessionSweeper interface {
	Sweep() int
}

// startScheduler reloads the company directory on a fixed interval and drops
// idle chat sessions on every tick.
func startScheduler(ctx context.Context, directory interfaces.CompanyDirectory, sessions sessionSweeper, logger *common.Logger, interval time.Duration) {
	if interval <= 0 {
		interval = common.FreshnessDirectory
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Scheduler: stopped")
			return
		case <-ticker.C:
			refreshDirectory(ctx, directory, logger)
			if sessions != nil {
				sessions.Sweep()
			}
		}
	}
}

func refreshDirectory(ctx context.Context, directory interfaces.CompanyDirectory, logger *common.Logger) {
	start := time.Now()

	if err := directory.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("Directory refresh: failed")
		return
	}

	stats, err := directory.Stats(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Directory refresh: stats unavailable")
		return
	}

	logger.Info().
		Int("companies", stats.Companies).
		Int("mapped", stats.Mapped).
		Dur("elapsed", time.Since(start)).
		Msg("Directory refresh: complete")
}
