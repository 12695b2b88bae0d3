package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"github.com/five82/courier/internal/logfields"
)

const defaultRefreshInterval = time.Minute

// StartRefresh schedules periodic order and vehicle loads. Both run once
// immediately. A run that overlaps the previous one is skipped. Call
// Shutdown on the returned scheduler to stop it.
func StartRefresh(ctx context.Context, loader *Loader, clock clockwork.Clock, interval time.Duration, logger *slog.Logger) (gocron.Scheduler, error) {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts := []gocron.SchedulerOption{}
	if clock != nil {
		opts = append(opts, gocron.WithClock(clock))
	}
	scheduler, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("create refresh scheduler: %w", err)
	}

	loads := map[string]func(context.Context) error{
		"orders":   loader.Orders,
		"vehicles": loader.Vehicles,
	}
	for name, load := range loads {
		_, err := scheduler.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() {
				if err := load(ctx); err != nil && ctx.Err() == nil {
					logger.Warn("refresh failed", slog.String("list", name), logfields.Error(err))
				}
			}),
			gocron.WithName("refresh-"+name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			_ = scheduler.Shutdown()
			return nil, fmt.Errorf("schedule %s refresh: %w", name, err)
		}
	}
	scheduler.Start()
	return scheduler, nil
}
