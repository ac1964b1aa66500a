// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents a member of the community directory.
type User struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	Name                string    `gorm:"not null" json:"name"`
	Email               string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash        string    `gorm:"not null" json:"-"`
	Phone               *string   `json:"phone,omitempty"`
	Latitude            *float64  `json:"latitude,omitempty"`
	Longitude           *float64  `json:"longitude,omitempty"`
	IsAdmin             bool      `gorm:"default:false" json:"is_admin"`
	IsVerifiedOrganizer bool      `gorm:"default:false" json:"is_verified_organizer"`
	IsBanned            bool      `gorm:"default:false" json:"is_banned"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// UserSummary is the public projection of a user attached to content.
// It never carries the password hash.
type UserSummary struct {
	ID                  uint   `json:"id"`
	Name                string `json:"name"`
	Email               string `json:"email"`
	IsVerifiedOrganizer bool   `json:"is_verified_organizer"`
}

// Summary projects u onto its public fields.
func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:                  u.ID,
		Name:                u.Name,
		Email:               u.Email,
		IsVerifiedOrganizer: u.IsVerifiedOrganizer,
	}
}
