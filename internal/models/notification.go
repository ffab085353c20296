package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification kind constants
const (
	NotificationKindLateness      = "lateness"
	NotificationKindBreakExceeded = "break_exceeded"
)

// Notification is an audit record of one webhook delivery attempt.
// The webhook itself is fire-and-forget; this table is what the admin
// panel shows, not a retry queue.
type Notification struct {
	gorm.Model
	DeliveryID   string         `gorm:"not null;uniqueIndex" json:"delivery_id"`
	UserID       uint           `gorm:"not null;index" json:"user_id"`
	Kind         string         `gorm:"not null;index" json:"kind"`
	Payload      datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
	ErrorMessage string         `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
}
