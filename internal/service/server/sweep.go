package server

import (
	"context"
	"time"

	"go.uber.org/multierr"

	"github.com/oshokin/alarm-conditions/internal/config"
	"github.com/oshokin/alarm-conditions/internal/logger"
	"github.com/oshokin/alarm-conditions/internal/source"
)

// runSweeps drives the update cycle every interval and checkpoints after each sweep
// until ctx is canceled.
func (s *service) runSweeps(ctx context.Context, interval time.Duration) error {
	logger.InfoKV(ctx, "Update cycle started", "interval", interval.String())

	// Setup sweep ticker with the configured interval.
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Update cycle stopped")

			return nil
		case <-ticker.C:
			if published := s.Sweep(ctx); published > 0 {
				logger.DebugKV(ctx, "Sweep published records", "records", published)
			}

			// Command results since the last tick are persisted here too.
			if err := s.Checkpoint(ctx); err != nil {
				logger.ErrorKV(ctx, "Checkpoint failed", "error", err)
			}
		}
	}
}

// registerAlarms registers every configured alarm it can build.
// Entries that fail are logged and skipped; their errors are combined in the result.
func registerAlarms(ctx context.Context, s *service, alarms []config.AlarmConfig) (int, error) {
	var (
		registered int
		skipped    error
	)

	for i := range alarms {
		cfg := &alarms[i]

		if err := registerAlarm(ctx, s, cfg); err != nil {
			logger.ErrorKV(ctx, "Skipping alarm", "alarm", cfg.Identity(), "error", err)

			skipped = multierr.Append(skipped, err)

			continue
		}

		registered++
	}

	return registered, skipped
}

// registerAlarm builds the definition and feed of one entry and registers them.
func registerAlarm(ctx context.Context, s *service, cfg *config.AlarmConfig) error {
	def, err := cfg.Definition()
	if err != nil {
		return err
	}

	feed, err := source.New(&cfg.Feed, def.Variant.Category)
	if err != nil {
		return err
	}

	return s.Register(ctx, def, feed)
}
