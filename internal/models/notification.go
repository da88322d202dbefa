package models

import (
	"encoding/json"
	"time"
)

type NotificationSeverity string

const (
	NotificationSeverityInfo    NotificationSeverity = "info"
	NotificationSeverityWarning NotificationSeverity = "warning"
	NotificationSeverityError   NotificationSeverity = "error"
)

type NotificationEvent string

const (
	NotificationEventInviteSent     NotificationEvent = "invite_sent"
	NotificationEventInviteAccepted NotificationEvent = "invite_accepted"
	NotificationEventMemberAdded    NotificationEvent = "member_added"
	NotificationEventMemberRemoved  NotificationEvent = "member_removed"
)

type Notification struct {
	ID        string               `json:"id" db:"id"`
	AccountID *string              `json:"account_id,omitempty" db:"account_id"`
	EventType NotificationEvent    `json:"event_type" db:"event_type"`
	Severity  NotificationSeverity `json:"severity" db:"severity"`
	Title     string               `json:"title" db:"title"`
	Message   string               `json:"message" db:"message"`
	Metadata  json.RawMessage      `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time            `json:"created_at" db:"created_at"`
	ReadAt    *time.Time           `json:"read_at,omitempty" db:"read_at"`
}
