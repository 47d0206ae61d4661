package monitor

import (
	"context"
	"log/slog"

	"github.com/screwyprof/daodelegate/pkg/logger"
)

// LogEvents subscribes log to every event on events and returns the subscriber closer
func LogEvents(ctx context.Context, events <-chan Event, log *slog.Logger) func() {
	return NewSubscriber(events,
		OnWarmupStarted(func(event WarmupStarted) {
			log.InfoContext(ctx, "Warmup started",
				slog.String("startedAt", event.StartedAt.Format(logger.BritishTimeFormat)),
				slog.Int("watched", event.Watched),
			)
		}),
		OnWarmupDone(func(event WarmupDone) {
			log.InfoContext(ctx, "Warmup completed",
				slog.Int("refreshed", event.Summary.Refreshed),
				slog.Int("incomplete", event.Summary.Incomplete),
				slog.Int("failed", event.Summary.Failed),
				slog.Duration("duration", event.Duration),
			)
		}),
		OnPowerRefreshed(func(event PowerRefreshed) {
			p := event.Entry.Value
			log.DebugContext(ctx, "Power refreshed",
				slog.String("address", p.Address.Hex()),
				slog.String("effective", p.Effective.String()),
				slog.Int("contributors", p.Contributors()),
				slog.Bool("incomplete", p.Incomplete),
			)
		}),
		OnRefreshError(func(event RefreshError) {
			log.ErrorContext(ctx, "Power refresh failed",
				slog.String("address", event.Address.Hex()),
				slog.Any("error", event.Err),
			)
		}),
		OnPollingStarted(func(event PollingStarted) {
			log.InfoContext(ctx, "Polling started",
				slog.Duration("interval", event.Interval),
			)
		}),
		OnCycleCompleted(func(event CycleCompleted) {
			if event.Summary.Incomplete > 0 || event.Summary.Failed > 0 {
				log.WarnContext(ctx, "Polling cycle completed with gaps",
					slog.Int("refreshed", event.Summary.Refreshed),
					slog.Int("incomplete", event.Summary.Incomplete),
					slog.Int("failed", event.Summary.Failed),
				)
				return
			}
			log.InfoContext(ctx, "Polling cycle completed",
				slog.Int("refreshed", event.Summary.Refreshed),
			)
		}),
		OnPollingShutdown(func(event PollingShutdown) {
			log.InfoContext(ctx, "Polling stopped",
				slog.String("reason", event.Reason.Error()),
			)
		}),
	)
}
