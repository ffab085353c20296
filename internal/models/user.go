package models

import (
	"time"

	"gorm.io/gorm"
)

// Role constants
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Status is a user's current lifecycle state.
type Status string

const (
	StatusWorking Status = "working"
	StatusOnBreak Status = "on_break"
	StatusOffline Status = "offline"
)

// User represents an employee with their current work status and break accounting.
//
// BreakStartTime is set if and only if Status is on_break. DailyBreakTime holds
// seconds accumulated from breaks already finished today; a break currently in
// progress is not included and must be added at read time.
type User struct {
	gorm.Model
	Email          string     `gorm:"uniqueIndex:idx_users_email_not_deleted,where:deleted_at IS NULL;not null" json:"email"`
	Name           string     `gorm:"not null;default:''" json:"name"`
	PasswordHash   string     `gorm:"not null;default:''" json:"-"`
	Role           string     `gorm:"not null;default:'user'" json:"role"` // enum: 'user' or 'admin'
	Status         Status     `gorm:"not null;default:'offline';index" json:"status"`
	BreakStartTime *time.Time `json:"break_start_time,omitempty"`
	DailyBreakTime int64      `gorm:"not null;default:0" json:"daily_break_time"` // seconds
	WorkStartTime  *time.Time `json:"work_start_time,omitempty"`

	// Associations
	TimeLogs []TimeLog `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
