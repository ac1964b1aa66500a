package repository

import (
	"context"
	"fmt"
	"log/slog"

	"civicboard/internal/cache"
	"civicboard/internal/database"
	"civicboard/internal/models"
	"civicboard/internal/observability"

	"gorm.io/gorm"
)

// ToggleResult is the state of a membership row after a toggle. Count is the
// materialized upvotes for votes and the follower count for follows.
type ToggleResult struct {
	Kind        models.ToggleKind  `json:"kind"`
	ContentType models.ContentType `json:"content_type"`
	ContentID   uint               `json:"content_id"`
	State       bool               `json:"state"`
	Count       int64              `json:"count"`
}

// ToggleRepository flips vote and follow memberships.
type ToggleRepository interface {
	Toggle(ctx context.Context, kind models.ToggleKind, ct models.ContentType, contentID, userID uint) (*ToggleResult, error)
	IsOn(ctx context.Context, kind models.ToggleKind, ct models.ContentType, contentID, userID uint) (bool, error)
	FollowerIDs(ctx context.Context, ct models.ContentType, contentID uint) ([]uint, error)
}

type toggleRepository struct {
	db    *gorm.DB
	cache *cache.Cache
	log   *observability.RepoLogger
}

// NewToggleRepository creates a new toggle repository. c may be nil.
func NewToggleRepository(db *gorm.DB, c *cache.Cache) ToggleRepository {
	return &toggleRepository{db: db, cache: c, log: observability.NewRepoLogger("memberships")}
}

// membership describes one (kind, content type) join table.
type membership struct {
	table  string
	fk     string
	newRow func(contentID, userID uint) any
	model  func() any
}

var memberships = map[models.ToggleKind]map[models.ContentType]membership{
	models.ToggleVote: {
		models.ContentTypeEvent: {
			table:  "event_votes",
			fk:     "event_id",
			newRow: func(c, u uint) any { return &models.EventVote{EventID: c, UserID: u} },
			model:  func() any { return &models.EventVote{} },
		},
		models.ContentTypeIssue: {
			table:  "issue_votes",
			fk:     "issue_id",
			newRow: func(c, u uint) any { return &models.IssueVote{IssueID: c, UserID: u} },
			model:  func() any { return &models.IssueVote{} },
		},
	},
	models.ToggleFollow: {
		models.ContentTypeEvent: {
			table:  "event_followers",
			fk:     "event_id",
			newRow: func(c, u uint) any { return &models.EventFollower{EventID: c, UserID: u} },
			model:  func() any { return &models.EventFollower{} },
		},
		models.ContentTypeIssue: {
			table:  "issue_followers",
			fk:     "issue_id",
			newRow: func(c, u uint) any { return &models.IssueFollower{IssueID: c, UserID: u} },
			model:  func() any { return &models.IssueFollower{} },
		},
	},
}

func membershipFor(kind models.ToggleKind, ct models.ContentType) (membership, error) {
	m, ok := memberships[kind][ct]
	if !ok {
		return membership{}, models.NewValidationError(fmt.Sprintf("cannot %s %q content", kind, ct))
	}
	return m, nil
}

// Toggle deletes the (content, user) row if present, otherwise inserts it.
// An insert rejected by the unique index means a concurrent caller already
// turned it on, so the result is "on". Vote toggles re-derive upvotes from
// COUNT(*) afterwards.
func (r *toggleRepository) Toggle(ctx context.Context, kind models.ToggleKind, ct models.ContentType, contentID, userID uint) (*ToggleResult, error) {
	m, err := membershipFor(kind, ct)
	if err != nil {
		return nil, err
	}
	exists, err := contentExists(ctx, r.db, ct, contentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError(string(ct), contentID)
	}

	defer observability.TrackQuery("toggle", m.table)()
	db := r.db.WithContext(ctx)
	res := &ToggleResult{Kind: kind, ContentType: ct, ContentID: contentID}

	del := db.Where(m.fk+" = ? AND user_id = ?", contentID, userID).Delete(m.model())
	if del.Error != nil {
		r.log.LogError(ctx, del.Error, "toggle_delete")
		return nil, storageError("toggle "+m.table, del.Error)
	}

	if del.RowsAffected == 0 {
		res.State = true
		if err := db.Create(m.newRow(contentID, userID)).Error; err != nil {
			if !database.IsUniqueViolation(err) {
				r.log.LogError(ctx, err, "toggle_insert")
				return nil, storageError("toggle "+m.table, err)
			}
			observability.ToggleConflicts.WithLabelValues(string(kind), string(ct)).Inc()
			observability.Logger.DebugContext(ctx, "toggle insert lost race, treating as on",
				slog.String("table", m.table),
				slog.Uint64("content_id", uint64(contentID)),
				slog.Uint64("user_id", uint64(userID)),
			)
		}
	}

	if kind == models.ToggleVote {
		if res.Count, err = Recount(ctx, r.db, ct, contentID); err != nil {
			return nil, err
		}
		r.cache.InvalidateContent(ctx, ct, contentID)
	} else if err := db.Table(m.table).Where(m.fk+" = ?", contentID).Count(&res.Count).Error; err != nil {
		return nil, storageError("count "+m.table, err)
	}

	observability.ToggleTotal.WithLabelValues(string(kind), string(ct), stateLabel(res.State)).Inc()
	return res, nil
}

func stateLabel(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func (r *toggleRepository) IsOn(ctx context.Context, kind models.ToggleKind, ct models.ContentType, contentID, userID uint) (bool, error) {
	m, err := membershipFor(kind, ct)
	if err != nil {
		return false, err
	}
	var n int64
	err = r.db.WithContext(ctx).Table(m.table).Where(m.fk+" = ? AND user_id = ?", contentID, userID).Count(&n).Error
	if err != nil {
		return false, storageError("lookup "+m.table, err)
	}
	return n > 0, nil
}

// FollowerIDs lists the users following a piece of content.
func (r *toggleRepository) FollowerIDs(ctx context.Context, ct models.ContentType, contentID uint) ([]uint, error) {
	m, err := membershipFor(models.ToggleFollow, ct)
	if err != nil {
		return nil, err
	}
	var ids []uint
	err = r.db.WithContext(ctx).Table(m.table).Where(m.fk+" = ?", contentID).Order("user_id").Pluck("user_id", &ids).Error
	if err != nil {
		return nil, storageError("list "+m.table, err)
	}
	return ids, nil
}
