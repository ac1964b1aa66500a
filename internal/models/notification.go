package models

import (
	"time"
)

const (
	NotificationIssueStatus       = "issue_status"
	NotificationEventRegistration = "event_registration"
)

// Notification is an in-app message addressed to one user.
type Notification struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	UserID      uint        `gorm:"not null;index" json:"user_id"`
	Type        string      `gorm:"type:varchar(32);not null" json:"type"`
	Message     string      `gorm:"not null" json:"message"`
	ContentType ContentType `gorm:"type:varchar(16)" json:"content_type,omitempty"`
	ContentID   uint        `json:"content_id,omitempty"`
	IsRead      bool        `gorm:"default:false;index" json:"is_read"`
	CreatedAt   time.Time   `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}
