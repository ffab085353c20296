package models

import (
	"time"

	"gorm.io/gorm"
)

// Action is a user-initiated status change recorded in the time log.
type Action string

const (
	ActionStartWork  Action = "start_work"
	ActionStartBreak Action = "start_break"
	ActionEndBreak   Action = "end_break"
	ActionEndWork    Action = "end_work"
)

// ParseAction validates a raw action string from the API.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionStartWork, ActionStartBreak, ActionEndBreak, ActionEndWork:
		return Action(s), true
	}
	return "", false
}

// TimeLog is an append-only record of one accepted status action.
// Entries are never updated or deleted by the application.
type TimeLog struct {
	gorm.Model
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Action    Action    `gorm:"not null" json:"action"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	// BreakDuration is the folded break segment in seconds, set only on
	// end_break and on end_work entries that closed an open break.
	BreakDuration *int64 `json:"break_duration,omitempty"`
}
