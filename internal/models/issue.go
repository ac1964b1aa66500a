package models

import (
	"encoding/json"
	"time"
)

// IssueStatus is the lifecycle state of a reported issue.
type IssueStatus string

const (
	IssueStatusReported    IssueStatus = "Reported"
	IssueStatusInProgress  IssueStatus = "In Progress"
	IssueStatusUnderReview IssueStatus = "Under Review"
	IssueStatusResolved    IssueStatus = "Resolved"
)

// Valid reports whether s is a known issue status.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusReported, IssueStatusInProgress, IssueStatusUnderReview, IssueStatusResolved:
		return true
	}
	return false
}

// Issue is a community problem reported by a resident. Status is a
// projection of the newest IssueStatusUpdate and only changes together with one.
type Issue struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Title       string      `gorm:"not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	Category    string      `gorm:"index" json:"category"`
	Location    string      `json:"location"`
	Latitude    *float64    `json:"latitude,omitempty"`
	Longitude   *float64    `json:"longitude,omitempty"`
	Status      IssueStatus `gorm:"type:varchar(20);not null;default:'Reported';index" json:"status"`
	IsAnonymous bool        `gorm:"default:false" json:"is_anonymous"`
	IsFlagged   bool        `gorm:"default:false" json:"is_flagged"`
	Upvotes     int64       `gorm:"not null;default:0" json:"upvotes"`
	ReporterID  *uint       `gorm:"index" json:"reporter_id,omitempty"`
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// Attached by the include resolver
	Reporter      *UserSummary        `gorm:"-" json:"reporter"`
	Photos        []IssuePhoto        `gorm:"-" json:"photos"`
	Votes         []IssueVote         `gorm:"-" json:"votes"`
	Followers     []IssueFollower     `gorm:"-" json:"followers"`
	StatusUpdates []IssueStatusUpdate `gorm:"-" json:"status_updates"`
}

// TableName specifies the table name for GORM
func (Issue) TableName() string {
	return "issues"
}

type issueJSON Issue

// MarshalJSON omits reporter_id on anonymous issues.
func (i Issue) MarshalJSON() ([]byte, error) {
	out := issueJSON(i)
	if out.IsAnonymous {
		out.ReporterID = nil
	}
	return json.Marshal(out)
}

// IssuePhoto is an image URL attached to an issue.
type IssuePhoto struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	IssueID   uint      `gorm:"not null;index" json:"issue_id"`
	URL       string    `gorm:"not null" json:"url"`
	Caption   string    `json:"caption,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (IssuePhoto) TableName() string {
	return "issue_photos"
}

// IssueVote records that a user upvoted an issue.
type IssueVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	IssueID   uint      `gorm:"not null;uniqueIndex:idx_issue_votes_issue_user" json:"issue_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_issue_votes_issue_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (IssueVote) TableName() string {
	return "issue_votes"
}

// IssueFollower records that a user follows an issue.
type IssueFollower struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	IssueID   uint      `gorm:"not null;uniqueIndex:idx_issue_followers_issue_user" json:"issue_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_issue_followers_issue_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (IssueFollower) TableName() string {
	return "issue_followers"
}

// IssueStatusUpdate is one append-only entry in an issue's status history.
type IssueStatusUpdate struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	IssueID   uint        `gorm:"not null;index" json:"issue_id"`
	Status    IssueStatus `gorm:"type:varchar(20);not null" json:"status"`
	Comment   *string     `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

func (IssueStatusUpdate) TableName() string {
	return "issue_status_updates"
}
