package repository

import (
	"context"
	"fmt"

	"civicboard/internal/cache"
	"civicboard/internal/models"
	"civicboard/internal/observability"

	"gorm.io/gorm"
)

type counterTarget struct {
	table string
	votes string
	fk    string
}

var counterTargets = map[models.ContentType]counterTarget{
	models.ContentTypeEvent: {table: "events", votes: "event_votes", fk: "event_id"},
	models.ContentTypeIssue: {table: "issues", votes: "issue_votes", fk: "issue_id"},
}

func (t counterTarget) recountSQL() string {
	return fmt.Sprintf(
		"UPDATE %s SET upvotes = (SELECT COUNT(*) FROM %s WHERE %s.%s = %s.id)",
		t.table, t.votes, t.votes, t.fk, t.table,
	)
}

// Recount re-derives the upvotes counter of one event or issue from its vote
// rows and returns the stored value. It never increments in memory, so
// concurrent toggles converge on the true count.
func Recount(ctx context.Context, db *gorm.DB, ct models.ContentType, id uint) (int64, error) {
	t, ok := counterTargets[ct]
	if !ok {
		return 0, models.NewValidationError(fmt.Sprintf("unknown content type %q", ct))
	}
	defer observability.TrackQuery("recount", t.table)()

	res := db.WithContext(ctx).Exec(t.recountSQL()+" WHERE id = ?", id)
	if res.Error != nil {
		return 0, storageError("recount "+t.table, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, models.NewNotFoundError(string(ct), id)
	}

	var upvotes int64
	err := db.WithContext(ctx).Table(t.table).Select("upvotes").Where("id = ?", id).Row().Scan(&upvotes)
	if err != nil {
		return 0, storageError("read "+t.table+" upvotes", err)
	}
	return upvotes, nil
}

// RecountAll repairs the upvotes counter of every row of ct and returns how
// many rows were rewritten.
func RecountAll(ctx context.Context, db *gorm.DB, ct models.ContentType) (int64, error) {
	t, ok := counterTargets[ct]
	if !ok {
		return 0, models.NewValidationError(fmt.Sprintf("unknown content type %q", ct))
	}
	defer observability.TrackQuery("recount_all", t.table)()

	res := db.WithContext(ctx).Exec(t.recountSQL())
	if res.Error != nil {
		return 0, storageError("recount "+t.table, res.Error)
	}
	observability.Logger.InfoContext(ctx, "counters recomputed",
		"table", t.table,
		"rows", res.RowsAffected,
	)
	return res.RowsAffected, nil
}

const invalidateBatch = 500

// InvalidateAll drops the cached record of every row of ct, so readers see the
// counters RecountAll rewrote. A nil or disconnected cache is a no-op.
func InvalidateAll(ctx context.Context, db *gorm.DB, c *cache.Cache, ct models.ContentType) (int, error) {
	t, ok := counterTargets[ct]
	if !ok {
		return 0, models.NewValidationError(fmt.Sprintf("unknown content type %q", ct))
	}
	if !c.Enabled() {
		return 0, nil
	}

	var ids []uint
	if err := db.WithContext(ctx).Table(t.table).Order("id").Pluck("id", &ids).Error; err != nil {
		return 0, storageError("list "+t.table+" ids", err)
	}
	for start := 0; start < len(ids); start += invalidateBatch {
		end := min(start+invalidateBatch, len(ids))
		keys := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, cache.ContentKey(ct, id))
		}
		c.Invalidate(ctx, keys...)
	}
	return len(ids), nil
}
