package worker

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/odilbek/timeclock/internal/timeclock"
)

// Task type constants
const (
	TaskSendNotification = "notify:webhook"
	TaskBreakSweep       = "monitor:break_sweep"
)

// notificationPayload is the queued form of a timeclock.Notification.
type notificationPayload struct {
	DeliveryID string    `json:"delivery_id"`
	UserID     uint      `json:"user_id"`
	UserName   string    `json:"user_name"`
	Kind       string    `json:"kind"`
	RefTime    time.Time `json:"ref_time"`
}

// Package-level Asynq client (singleton)
var client *asynq.Client

// InitClient initializes the global Asynq client for task enqueueing.
// Must be called before any Enqueue functions.
func InitClient(redisURL string) error {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return err
	}

	client = asynq.NewClient(opt)
	return nil
}

// CloseClient closes the Asynq client connection gracefully.
func CloseClient() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// EnqueueNotification queues one webhook delivery. MaxRetry is zero:
// notifications are at-most-once, a failed send is recorded and dropped.
func EnqueueNotification(n timeclock.Notification) error {
	payload, err := json.Marshal(notificationPayload{
		DeliveryID: uuid.New().String(),
		UserID:     n.UserID,
		UserName:   n.UserName,
		Kind:       string(n.Kind),
		RefTime:    n.At,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(
		TaskSendNotification,
		payload,
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Second),
		asynq.Retention(24*time.Hour),
	)

	_, err = client.Enqueue(task)
	return err
}

// QueueDispatcher adapts the enqueue function to the service's Dispatcher
// port. Enqueueing is the fire-and-forget boundary: once the task is in
// Redis the transition that produced it is done with it.
type QueueDispatcher struct{}

// Dispatch implements timeclock.Dispatcher.
func (QueueDispatcher) Dispatch(n timeclock.Notification) error {
	return EnqueueNotification(n)
}
