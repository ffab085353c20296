package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odilbek/timeclock/internal/config"
	"github.com/odilbek/timeclock/internal/logging"
)

// StartScheduler creates and starts an Asynq Scheduler that fires the break
// sweep on a fixed interval. asynq.Unique keeps a slow sweep from stacking:
// if the previous run is still pending when the timer fires, the new task is
// dropped rather than run concurrently.
// Returns a stop function for graceful shutdown.
func StartScheduler(cfg *config.Config) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		slog.Warn("Invalid timezone, using UTC", "timezone", cfg.Timezone, "error", err)
		location = time.UTC
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: location,
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	task := asynq.NewTask(
		TaskBreakSweep,
		nil, // empty payload, the handler queries all on-break users itself
		asynq.MaxRetry(0),
		asynq.Timeout(cfg.MonitorInterval),
		asynq.Unique(cfg.MonitorInterval),
	)

	spec := fmt.Sprintf("@every %s", cfg.MonitorInterval)
	entryID, err := scheduler.Register(spec, task)
	if err != nil {
		return nil, fmt.Errorf("failed to register break sweep schedule: %w", err)
	}

	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	slog.Info(
		"Break monitor scheduled",
		"interval", cfg.MonitorInterval.String(),
		"timezone", cfg.Timezone,
		"entry_id", entryID,
	)

	return func() { scheduler.Shutdown() }, nil
}
