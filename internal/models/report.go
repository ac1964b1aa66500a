package models

import (
	"time"
)

// ReportStatus is the moderation state of a violation report.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusReviewed  ReportStatus = "reviewed"
	ReportStatusResolved  ReportStatus = "resolved"
	ReportStatusDismissed ReportStatus = "dismissed"
)

// Valid reports whether s is a known report status.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusPending, ReportStatusReviewed, ReportStatusResolved, ReportStatusDismissed:
		return true
	}
	return false
}

// ViolationReport flags an event or issue for moderator review.
// A reporter may report a given (ContentType, ContentID) at most once.
type ViolationReport struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	ContentType  ContentType  `gorm:"type:varchar(16);not null;uniqueIndex:idx_reports_content_reporter" json:"content_type"`
	ContentID    uint         `gorm:"not null;uniqueIndex:idx_reports_content_reporter" json:"content_id"`
	ReportedByID uint         `gorm:"not null;uniqueIndex:idx_reports_content_reporter;index" json:"reported_by_id"`
	Reason       string       `gorm:"not null" json:"reason"`
	Description  *string      `gorm:"type:text" json:"description,omitempty"`
	Status       ReportStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	ReviewedAt   *time.Time   `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`

	// Resolved from the referenced content
	ContentTitle      *string `gorm:"-" json:"content_title"`
	ContentAuthorName *string `gorm:"-" json:"content_author_name"`
}

// TableName specifies the table name for GORM
func (ViolationReport) TableName() string {
	return "violation_reports"
}
