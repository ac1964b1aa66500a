package database

import "civicboard/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Event{},
		&models.EventPhoto{},
		&models.EventVote{},
		&models.EventFollower{},
		&models.EventFeedback{},
		&models.Interest{},
		&models.Issue{},
		&models.IssuePhoto{},
		&models.IssueVote{},
		&models.IssueFollower{},
		&models.IssueStatusUpdate{},
		&models.ViolationReport{},
		&models.Notification{},
	}
}
