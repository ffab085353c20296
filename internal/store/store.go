// Package store is the persistence gateway over Postgres. It owns every
// query the service and the HTTP handlers run; nothing above it touches
// gorm directly.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/odilbek/timeclock/internal/models"
	"github.com/odilbek/timeclock/internal/timeclock"
)

// Period selects the time window for log queries.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// ParsePeriod validates a raw period query parameter; empty means all.
func ParsePeriod(s string) (Period, bool) {
	switch Period(s) {
	case PeriodDay, PeriodMonth, PeriodAll:
		return Period(s), true
	case "":
		return PeriodAll, true
	}
	return "", false
}

// PeriodStart returns the inclusive lower bound of the window in the given
// timezone, or nil for an unbounded query. Day starts at local midnight,
// month at the first of the month at local midnight.
func PeriodStart(p Period, now time.Time, loc *time.Location) *time.Time {
	local := now.In(loc)
	switch p {
	case PeriodDay:
		t := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		return &t
	case PeriodMonth:
		t := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		return &t
	}
	return nil
}

// LogWithUser is a time-log row joined with the user's display fields for
// the admin log view.
type LogWithUser struct {
	models.TimeLog
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

// Stats is the admin dashboard headcount by status.
type Stats struct {
	TotalUsers   int64 `json:"totalUsers"`
	WorkingUsers int64 `json:"workingUsers"`
	OnBreakUsers int64 `json:"onBreakUsers"`
	OfflineUsers int64 `json:"offlineUsers"`
}

// Store implements timeclock.Gateway plus the admin queries.
type Store struct {
	db  *gorm.DB
	loc *time.Location
}

// New creates a Store. loc is the reference timezone used for day/month
// window math.
func New(db *gorm.DB, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{db: db, loc: loc}
}

// GetUser fetches one user by id, mapping a missing row to ErrMissingRecord.
func (s *Store) GetUser(ctx context.Context, id uint) (models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, fmt.Errorf("user %d: %w", id, timeclock.ErrMissingRecord)
		}
		return models.User{}, err
	}
	return u, nil
}

// GetUserByEmail fetches one user by email for the login flow.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, fmt.Errorf("user %s: %w", email, timeclock.ErrMissingRecord)
		}
		return models.User{}, err
	}
	return u, nil
}

// ListUsers returns users ordered by creation, optionally filtered by
// status. An empty status means all users.
func (s *Store) ListUsers(ctx context.Context, status models.Status) ([]models.User, error) {
	q := s.db.WithContext(ctx).Order("created_at ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// SaveUser writes the full next state back. Last writer wins; there is no
// version check (see DESIGN.md on the read-modify-write race).
func (s *Store) SaveUser(ctx context.Context, u models.User) (models.User, error) {
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"status":           u.Status,
			"break_start_time": u.BreakStartTime,
			"daily_break_time": u.DailyBreakTime,
			"work_start_time":  u.WorkStartTime,
			"updated_at":       u.UpdatedAt,
		}).Error
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// AppendLog inserts one immutable time-log entry.
func (s *Store) AppendLog(ctx context.Context, entry models.TimeLog) error {
	return s.db.WithContext(ctx).Create(&entry).Error
}

// UserLogs returns one user's log entries for the window, newest first.
func (s *Store) UserLogs(ctx context.Context, userID uint, p Period, now time.Time) ([]models.TimeLog, error) {
	q := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC")
	if from := PeriodStart(p, now, s.loc); from != nil {
		q = q.Where("timestamp >= ?", *from)
	}
	var logs []models.TimeLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// AllLogs returns every user's log entries joined with name and email for
// the window, newest first.
func (s *Store) AllLogs(ctx context.Context, p Period, now time.Time) ([]LogWithUser, error) {
	q := s.db.WithContext(ctx).
		Table("time_logs").
		Select("time_logs.*, users.name AS user_name, users.email AS user_email").
		Joins("JOIN users ON users.id = time_logs.user_id").
		Where("time_logs.deleted_at IS NULL").
		Order("time_logs.timestamp DESC")
	if from := PeriodStart(p, now, s.loc); from != nil {
		q = q.Where("time_logs.timestamp >= ?", *from)
	}
	var logs []LogWithUser
	if err := q.Scan(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// GetStats counts users per status for the admin dashboard.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	var st Stats
	db := s.db.WithContext(ctx).Model(&models.User{})
	if err := db.Count(&st.TotalUsers).Error; err != nil {
		return Stats{}, err
	}
	counts := []struct {
		status models.Status
		dst    *int64
	}{
		{models.StatusWorking, &st.WorkingUsers},
		{models.StatusOnBreak, &st.OnBreakUsers},
		{models.StatusOffline, &st.OfflineUsers},
	}
	for _, c := range counts {
		if err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("status = ?", c.status).Count(c.dst).Error; err != nil {
			return Stats{}, err
		}
	}
	return st, nil
}

// CreateUser inserts a new user (admin panel).
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return models.User{}, err
	}
	return u, nil
}

// UpdateUserFields applies a partial admin edit (name, email, role).
func (s *Store) UpdateUserFields(ctx context.Context, id uint, fields map[string]interface{}) (models.User, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.User{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.User{}, fmt.Errorf("user %d: %w", id, timeclock.ErrMissingRecord)
	}
	return s.GetUser(ctx, id)
}

// SetPassword stores a new password hash for the user.
func (s *Store) SetPassword(ctx context.Context, id uint, hash string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, timeclock.ErrMissingRecord)
	}
	return nil
}

// DeleteUser soft-deletes a user. Their time logs remain for reporting.
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, timeclock.ErrMissingRecord)
	}
	return nil
}

// RecordNotification writes a delivery audit row.
func (s *Store) RecordNotification(ctx context.Context, n models.Notification) error {
	return s.db.WithContext(ctx).Create(&n).Error
}

// ListNotifications returns recent delivery audit rows, newest first.
func (s *Store) ListNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	var ns []models.Notification
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&ns).Error; err != nil {
		return nil, err
	}
	return ns, nil
}
