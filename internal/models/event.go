package models

import (
	"time"
)

// Event is a community event published by an organizer.
type Event struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Title             string     `gorm:"not null" json:"title"`
	Description       string     `gorm:"type:text" json:"description"`
	Location          string     `json:"location"`
	Latitude          float64    `gorm:"not null" json:"latitude"`
	Longitude         float64    `gorm:"not null" json:"longitude"`
	StartDate         time.Time  `gorm:"not null;index" json:"start_date"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	Category          string     `gorm:"index" json:"category"`
	IsUrgent          bool       `gorm:"default:false" json:"is_urgent"`
	IsApproved        bool       `gorm:"default:false;index" json:"is_approved"`
	IsFlagged         bool       `gorm:"default:false" json:"is_flagged"`
	IsPaid            bool       `gorm:"default:false" json:"is_paid"`
	TicketPrice       *float64   `json:"ticket_price,omitempty"`
	MaxAttendees      *int       `json:"max_attendees,omitempty"`
	RegistrationStart *time.Time `json:"registration_start,omitempty"`
	RegistrationEnd   *time.Time `json:"registration_end,omitempty"`
	// Upvotes mirrors COUNT(*) of event_votes; only the counter materializer writes it.
	Upvotes     int64     `gorm:"not null;default:0" json:"upvotes"`
	OrganizerID uint      `gorm:"not null;index" json:"organizer_id"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Attached by the include resolver
	Organizer     *UserSummary    `gorm:"-" json:"organizer"`
	Photos        []EventPhoto    `gorm:"-" json:"photos"`
	Votes         []EventVote     `gorm:"-" json:"votes"`
	Followers     []EventFollower `gorm:"-" json:"followers"`
	Registrations []Interest      `gorm:"-" json:"registrations"`
	Feedback      []EventFeedback `gorm:"-" json:"feedback"`
}

// TableName specifies the table name for GORM
func (Event) TableName() string {
	return "events"
}

// EventPhoto is an image URL attached to an event.
type EventPhoto struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   uint      `gorm:"not null;index" json:"event_id"`
	URL       string    `gorm:"not null" json:"url"`
	Caption   string    `json:"caption,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (EventPhoto) TableName() string {
	return "event_photos"
}

// EventVote records that a user upvoted an event.
// The combination of EventID and UserID must be unique.
type EventVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   uint      `gorm:"not null;uniqueIndex:idx_event_votes_event_user" json:"event_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_event_votes_event_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (EventVote) TableName() string {
	return "event_votes"
}

// EventFollower records that a user follows an event.
type EventFollower struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   uint      `gorm:"not null;uniqueIndex:idx_event_followers_event_user" json:"event_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_event_followers_event_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (EventFollower) TableName() string {
	return "event_followers"
}

// EventFeedback is a post-event rating left by an attendee.
type EventFeedback struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   uint      `gorm:"not null;uniqueIndex:idx_event_feedback_event_user" json:"event_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_event_feedback_event_user" json:"user_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (EventFeedback) TableName() string {
	return "event_feedback"
}
