package timeclock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odilbek/timeclock/internal/models"
)

// Gateway is the persistence surface the service needs. The store package
// implements it over Postgres; tests use an in-memory fake.
type Gateway interface {
	GetUser(ctx context.Context, id uint) (models.User, error)
	ListUsers(ctx context.Context, status models.Status) ([]models.User, error)
	SaveUser(ctx context.Context, u models.User) (models.User, error)
	AppendLog(ctx context.Context, entry models.TimeLog) error
}

// Dispatcher hands a notification request off for asynchronous delivery.
// Implementations must not block on the actual webhook call.
type Dispatcher interface {
	Dispatch(n Notification) error
}

// Service is the shell around the pure engine: it fetches the record,
// applies the transition, writes the full next state back, appends the time
// log, and hands notifications to the dispatcher. Two concurrent calls for
// the same user race read-modify-write; the later write wins. Accepted
// limitation, actions are human-paced.
type Service struct {
	engine   *Engine
	gateway  Gateway
	dispatch Dispatcher
	log      *slog.Logger
}

// NewService wires the engine to its collaborators.
func NewService(engine *Engine, gw Gateway, d Dispatcher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{engine: engine, gateway: gw, dispatch: d, log: log}
}

// Engine exposes the underlying engine for read-time break totals.
func (s *Service) Engine() *Engine {
	return s.engine
}

// ApplyAction runs one user-initiated transition end to end and returns the
// persisted next state. ErrInvalidTransition and ErrMissingRecord surface
// without touching stored state; store failures abort and surface; dispatch
// failures are logged and swallowed.
func (s *Service) ApplyAction(ctx context.Context, userID uint, action models.Action, now time.Time) (models.User, error) {
	u, err := s.gateway.GetUser(ctx, userID)
	if err != nil {
		return models.User{}, fmt.Errorf("fetch user %d: %w", userID, err)
	}

	next, fx, err := s.engine.Apply(u, action, now)
	if err != nil {
		return models.User{}, err
	}
	if fx.LogAction == "" {
		// Idempotent no-op; nothing to persist.
		return u, nil
	}

	// Log entry first, then the status write-back, matching the order the
	// admin log views assume (an entry exists for every accepted action).
	entry := models.TimeLog{
		UserID:        next.ID,
		Action:        fx.LogAction,
		Timestamp:     fx.LogTimestamp,
		BreakDuration: fx.BreakDuration,
	}
	if err := s.gateway.AppendLog(ctx, entry); err != nil {
		return models.User{}, fmt.Errorf("append time log: %w", err)
	}

	saved, err := s.gateway.SaveUser(ctx, next)
	if err != nil {
		return models.User{}, fmt.Errorf("save user %d: %w", userID, err)
	}

	s.sendAll(fx.Notifications)
	return saved, nil
}

// SweepBreaks is the monitor entry point: re-evaluate the threshold for
// every user currently on break. One user's dispatch failure never aborts
// the rest of the sweep.
func (s *Service) SweepBreaks(ctx context.Context, now time.Time) error {
	users, err := s.gateway.ListUsers(ctx, models.StatusOnBreak)
	if err != nil {
		return fmt.Errorf("list users on break: %w", err)
	}

	for _, u := range users {
		n, ok := s.engine.CheckBreakExceeded(u, now)
		if !ok {
			continue
		}
		if err := s.dispatch.Dispatch(n); err != nil {
			s.log.Warn("break notification dispatch failed",
				"user_id", u.ID,
				"error", err.Error(),
			)
		}
	}
	return nil
}

func (s *Service) sendAll(ns []Notification) {
	for _, n := range ns {
		if err := s.dispatch.Dispatch(n); err != nil {
			// The transition already committed, so only log the failure.
			s.log.Warn("notification dispatch failed",
				"kind", string(n.Kind),
				"user_id", n.UserID,
				"error", err.Error(),
			)
		}
	}
}
