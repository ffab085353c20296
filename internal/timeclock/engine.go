// Package timeclock implements the work/break status lifecycle: status
// transitions, daily break accounting, and threshold-exceeded detection.
// The engine is pure with respect to I/O; it returns the next user state
// plus the side effects the caller should execute.
package timeclock

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/odilbek/timeclock/internal/models"
)

// NotificationKind identifies the webhook a notification request targets.
type NotificationKind string

const (
	KindLateness      NotificationKind = models.NotificationKindLateness
	KindBreakExceeded NotificationKind = models.NotificationKindBreakExceeded
)

// Notification is a request to fire one webhook. Delivery is best-effort
// and owned by the caller; the engine only guarantees deduplication.
type Notification struct {
	Kind     NotificationKind
	UserID   uint
	UserName string
	At       time.Time
}

// Effects lists the side effects an accepted action produced. LogAction is
// empty when no time-log entry should be appended (the idempotent
// start_work no-op).
type Effects struct {
	LogAction     models.Action
	LogTimestamp  time.Time
	BreakDuration *int64 // folded segment seconds, recorded on the log entry
	Notifications []Notification
}

// Engine owns the transition rules and the per-day notification dedup set.
// It never caches user records across calls; every Apply operates on a
// freshly fetched record supplied by the caller.
type Engine struct {
	loc        *time.Location
	startHour  int
	startMin   int
	breakLimit int64 // seconds
	notified   *dedupSet
}

// NewEngine creates an engine for the given reference timezone.
// workdayStart is "HH:MM" in that timezone; arriving after it on the same
// calendar day triggers a lateness notification. breakLimit is the daily
// break budget in seconds.
func NewEngine(loc *time.Location, workdayStart string, breakLimit int64) (*Engine, error) {
	h, m, err := parseClock(workdayStart)
	if err != nil {
		return nil, fmt.Errorf("invalid workday start %q: %w", workdayStart, err)
	}
	if breakLimit <= 0 {
		return nil, fmt.Errorf("break limit must be positive, got %d", breakLimit)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		loc:        loc,
		startHour:  h,
		startMin:   m,
		breakLimit: breakLimit,
		notified:   newDedupSet(),
	}, nil
}

// Location returns the engine's reference timezone.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Apply computes the next state for one user action. The returned user is a
// full next state the caller writes back wholesale (last-writer-wins at the
// store). On ErrInvalidTransition the input record is returned unchanged and
// nothing must be persisted.
func (e *Engine) Apply(u models.User, action models.Action, now time.Time) (models.User, Effects, error) {
	var fx Effects

	// Day rollover happens before anything else. A break still open from
	// yesterday is not split at midnight: the accumulated counter is zeroed
	// and the whole in-flight segment folds into the new day when it ends.
	e.rollover(&u, now)

	switch {
	case action == models.ActionStartWork && u.Status == models.StatusWorking:
		// Double-submit from the UI. Leave everything alone.
		return u, fx, nil

	case action == models.ActionStartWork && u.Status == models.StatusOffline:
		t := now
		u.Status = models.StatusWorking
		u.WorkStartTime = &t
		u.BreakStartTime = nil
		if e.isLate(now) {
			fx.Notifications = append(fx.Notifications, Notification{
				Kind:     KindLateness,
				UserID:   u.ID,
				UserName: u.Name,
				At:       now,
			})
		}

	case action == models.ActionStartBreak && u.Status == models.StatusWorking:
		t := now
		u.Status = models.StatusOnBreak
		u.BreakStartTime = &t

	case action == models.ActionEndBreak && u.Status == models.StatusOnBreak:
		d := foldBreak(&u, now)
		fx.BreakDuration = &d
		u.Status = models.StatusWorking

	case action == models.ActionEndWork && u.Status == models.StatusWorking:
		u.Status = models.StatusOffline
		u.BreakStartTime = nil

	case action == models.ActionEndWork && u.Status == models.StatusOnBreak:
		d := foldBreak(&u, now)
		fx.BreakDuration = &d
		u.Status = models.StatusOffline

	default:
		return u, Effects{}, fmt.Errorf("%w: %s while %s", ErrInvalidTransition, action, u.Status)
	}

	fx.LogAction = action
	fx.LogTimestamp = now
	u.UpdatedAt = now

	// Ending a break (explicitly or via end_work) is a threshold checkpoint.
	if fx.BreakDuration != nil {
		if n, ok := e.thresholdExceeded(u, now, now); ok {
			fx.Notifications = append(fx.Notifications, n)
		}
	}

	return u, fx, nil
}

// CheckBreakExceeded is the monitor-side threshold check for a user who is
// currently on break. It returns at most one notification per user per day.
func (e *Engine) CheckBreakExceeded(u models.User, now time.Time) (Notification, bool) {
	if u.Status != models.StatusOnBreak || u.BreakStartTime == nil {
		return Notification{}, false
	}
	return e.thresholdExceeded(u, now, *u.BreakStartTime)
}

// TotalBreakTime returns accumulated break seconds for today including the
// in-progress segment, the number dashboards display.
func (e *Engine) TotalBreakTime(u models.User, now time.Time) int64 {
	total := u.DailyBreakTime
	if u.Status == models.StatusOnBreak && u.BreakStartTime != nil {
		total += int64(now.Sub(*u.BreakStartTime) / time.Second)
	}
	return total
}

// thresholdExceeded applies the dedup set; ref is the timestamp carried in
// the notification (break start for monitor checks, the action time for
// end-of-break checks).
func (e *Engine) thresholdExceeded(u models.User, now, ref time.Time) (Notification, bool) {
	if e.TotalBreakTime(u, now) <= e.breakLimit {
		return Notification{}, false
	}
	if !e.notified.markIfFirst(u.ID) {
		return Notification{}, false
	}
	return Notification{
		Kind:     KindBreakExceeded,
		UserID:   u.ID,
		UserName: u.Name,
		At:       ref,
	}, true
}

// rollover resets the daily counter and re-arms the notification when the
// record was last touched on an earlier calendar day.
func (e *Engine) rollover(u *models.User, now time.Time) {
	last := u.UpdatedAt.In(e.loc)
	cur := now.In(e.loc)
	ly, lm, ld := last.Date()
	cy, cm, cd := cur.Date()
	if ly == cy && lm == cm && ld == cd {
		return
	}
	u.DailyBreakTime = 0
	e.notified.clear(u.ID)
}

// isLate reports whether now falls after the workday start on its own
// calendar day in the reference timezone. Exactly on time is not late.
func (e *Engine) isLate(now time.Time) bool {
	local := now.In(e.loc)
	cutoff := time.Date(local.Year(), local.Month(), local.Day(), e.startHour, e.startMin, 0, 0, e.loc)
	return local.After(cutoff)
}

// foldBreak closes the open break segment into the daily counter and clears
// the segment start, keeping the break_start_time/on_break invariant.
func foldBreak(u *models.User, now time.Time) int64 {
	var d int64
	if u.BreakStartTime != nil {
		d = int64(now.Sub(*u.BreakStartTime) / time.Second)
		u.DailyBreakTime += d
	}
	u.BreakStartTime = nil
	return d
}

func parseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want HH:MM")
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour")
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad minute")
	}
	return hour, minute, nil
}
