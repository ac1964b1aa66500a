package models

import (
	"time"
)

// PaymentStatus tracks payment for a registration on a paid event.
type PaymentStatus string

const (
	PaymentNotRequired PaymentStatus = "not_required"
	PaymentPending     PaymentStatus = "pending"
	PaymentPaid        PaymentStatus = "paid"
)

// Interest is a user's registration for an event. Contact fields are a
// snapshot of the user taken when the registration was written.
type Interest struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	UserID         uint          `gorm:"not null;uniqueIndex:idx_interests_user_event" json:"user_id"`
	EventID        uint          `gorm:"not null;uniqueIndex:idx_interests_user_event;index" json:"event_id"`
	NumberOfPeople int           `gorm:"not null;default:1" json:"number_of_people"`
	UserName       string        `json:"user_name"`
	UserEmail      string        `json:"user_email"`
	UserPhone      *string       `json:"user_phone,omitempty"`
	PaymentStatus  PaymentStatus `gorm:"type:varchar(20);not null;default:'not_required'" json:"payment_status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Interest) TableName() string {
	return "interests"
}
