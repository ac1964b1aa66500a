package cache

import (
	"context"
	"fmt"
	"time"

	"civicboard/internal/models"
)

const (
	EventKeyPrefix = "event:%d"
	IssueKeyPrefix = "issue:%d"
	UserKeyPrefix  = "user:%d"
)

const (
	ContentTTL = 5 * time.Minute
	UserTTL    = 10 * time.Minute
)

func EventKey(eventID uint) string {
	return fmt.Sprintf(EventKeyPrefix, eventID)
}

func IssueKey(issueID uint) string {
	return fmt.Sprintf(IssueKeyPrefix, issueID)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// ContentKey returns the record key for a polymorphic content reference.
func ContentKey(ct models.ContentType, id uint) string {
	if ct == models.ContentTypeIssue {
		return IssueKey(id)
	}
	return EventKey(id)
}

func (c *Cache) InvalidateContent(ctx context.Context, ct models.ContentType, id uint) {
	c.Invalidate(ctx, ContentKey(ct, id))
}

func (c *Cache) InvalidateUser(ctx context.Context, userID uint) {
	c.Invalidate(ctx, UserKey(userID))
}
