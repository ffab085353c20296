package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/odilbek/timeclock/internal/config"
	"github.com/odilbek/timeclock/internal/logging"
	"github.com/odilbek/timeclock/internal/models"
	"github.com/odilbek/timeclock/internal/store"
	"github.com/odilbek/timeclock/internal/timeclock"
	"github.com/odilbek/timeclock/internal/webhook"
)

// lastSweepKey is where the sweep handler records its heartbeat so an
// operator can tell the monitor is alive without scraping logs.
const lastSweepKey = "timeclock:monitor:last_sweep"

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger interface
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) { a.logger.Debug(fmt.Sprint(args...)) }
func (a *asynqLoggerAdapter) Info(args ...interface{})  { a.logger.Info(fmt.Sprint(args...)) }
func (a *asynqLoggerAdapter) Warn(args ...interface{})  { a.logger.Warn(fmt.Sprint(args...)) }
func (a *asynqLoggerAdapter) Error(args ...interface{}) { a.logger.Error(fmt.Sprint(args...)) }
func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Start starts the embedded Asynq worker in non-blocking mode and returns a
// stop function. The worker runs in the same process as the HTTP server so
// the break sweep shares the engine's notification dedup set.
func Start(cfg *config.Config, st *store.Store, svc *timeclock.Service, webhookClient *webhook.Client) (stop func(), err error) {
	srv, mux, rdb, err := newServer(cfg, st, svc, webhookClient)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() {
		srv.Shutdown()
		rdb.Close()
	}, nil
}

func newServer(cfg *config.Config, st *store.Store, svc *timeclock.Service, webhookClient *webhook.Client) (*asynq.Server, *asynq.ServeMux, *redis.Client, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     5,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	// Dedicated Redis client for the monitor heartbeat, separate from the
	// Asynq internal connection.
	rdb, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create monitor Redis client: %w", err)
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskSendNotification, handleSendNotification(logger, st, webhookClient))
	mux.HandleFunc(TaskBreakSweep, handleBreakSweep(logger, svc, rdb))

	logger.Info("Worker starting", "concurrency", 5, "redis", cfg.RedisURL)
	return srv, mux, rdb, nil
}

func newRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// handleSendNotification delivers one queued webhook and writes the audit
// row. Delivery failures are recorded, not retried: returning nil keeps
// Asynq from rescheduling and preserves at-most-once semantics.
func handleSendNotification(logger *slog.Logger, st *store.Store, webhookClient *webhook.Client) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload notificationPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		logger.Info(
			"Processing notify:webhook task",
			"kind", payload.Kind,
			"user_id", payload.UserID,
			"delivery_id", payload.DeliveryID,
		)

		var sendErr error
		switch payload.Kind {
		case models.NotificationKindLateness:
			sendErr = webhookClient.SendLatenessReport(ctx, payload.UserName, payload.RefTime)
		case models.NotificationKindBreakExceeded:
			sendErr = webhookClient.SendBreakExceeded(ctx, payload.UserName, payload.RefTime)
		default:
			return fmt.Errorf("unknown notification kind %q: %w", payload.Kind, asynq.SkipRetry)
		}

		audit := models.Notification{
			DeliveryID: payload.DeliveryID,
			UserID:     payload.UserID,
			Kind:       payload.Kind,
		}
		body, _ := json.Marshal(map[string]string{
			"userName":  payload.UserName,
			"startTime": payload.RefTime.Format(time.RFC3339),
		})
		audit.Payload = body

		if sendErr != nil {
			audit.ErrorMessage = sendErr.Error()
			logger.Warn(
				"Webhook delivery failed",
				"kind", payload.Kind,
				"user_id", payload.UserID,
				"error", sendErr.Error(),
			)
		} else {
			now := time.Now()
			audit.SentAt = &now
		}

		if err := st.RecordNotification(ctx, audit); err != nil {
			logger.Error("Failed to record notification audit", "error", err.Error())
		}

		return nil
	}
}

// handleBreakSweep runs one monitor pass over everyone currently on break
// and stamps the heartbeat key.
func handleBreakSweep(logger *slog.Logger, svc *timeclock.Service, rdb *redis.Client) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		now := time.Now()
		if err := svc.SweepBreaks(ctx, now); err != nil {
			// Retryable: the store may be temporarily unavailable, and the
			// next scheduled sweep covers a missed one anyway.
			return fmt.Errorf("break sweep: %w", err)
		}

		if err := rdb.Set(ctx, lastSweepKey, now.Format(time.RFC3339), 24*time.Hour).Err(); err != nil {
			logger.Warn("Failed to record sweep heartbeat", "error", err.Error())
		}
		return nil
	}
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)
	}
}
