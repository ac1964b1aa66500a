package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"civicboard/internal/models"

	"gorm.io/gorm"
)

// Relation names accepted by the include resolver.
const (
	IncludeOrganizer     = "organizer"
	IncludeReporter      = "reporter"
	IncludePhotos        = "photos"
	IncludeVotes         = "votes"
	IncludeFollowers     = "followers"
	IncludeStatusUpdates = "statusUpdates"
	IncludeFeedback      = "feedback"
	IncludeRegistrations = "registrations"
)

var eventRelations = map[string]bool{
	IncludeOrganizer:     true,
	IncludePhotos:        true,
	IncludeVotes:         true,
	IncludeFollowers:     true,
	IncludeFeedback:      true,
	IncludeRegistrations: true,
}

var issueRelations = map[string]bool{
	IncludeReporter:      true,
	IncludePhotos:        true,
	IncludeVotes:         true,
	IncludeFollowers:     true,
	IncludeStatusUpdates: true,
}

// Includes is a validated set of relation names.
type Includes map[string]bool

// Has reports whether name was requested.
func (in Includes) Has(name string) bool {
	return in[name]
}

// ParseIncludes validates names against the relations ct supports. Names may
// be comma separated and status_updates is accepted for statusUpdates.
func ParseIncludes(ct models.ContentType, names []string) (Includes, error) {
	allowed := eventRelations
	if ct == models.ContentTypeIssue {
		allowed = issueRelations
	}

	out := Includes{}
	for _, raw := range names {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if name == "status_updates" {
				name = IncludeStatusUpdates
			}
			if !allowed[name] {
				return nil, models.NewValidationError(fmt.Sprintf("cannot include %q on %s", name, ct))
			}
			out[name] = true
		}
	}
	return out, nil
}

// loadChildren fetches every row of C whose fk is in parentIDs with a single
// IN query, grouped by parent and ordered by creation.
func loadChildren[C any](ctx context.Context, db *gorm.DB, fk string, parentIDs []uint, parentOf func(*C) uint) (map[uint][]C, error) {
	var rows []C
	err := db.WithContext(ctx).
		Where(fk+" IN ?", parentIDs).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint][]C, len(parentIDs))
	for i := range rows {
		k := parentOf(&rows[i])
		out[k] = append(out[k], rows[i])
	}
	return out, nil
}

// orEmpty turns a missing child list into an empty one so requested
// relations never serialize as null.
func orEmpty[C any](rows []C) []C {
	if rows == nil {
		return []C{}
	}
	return rows
}

// loadUserSummaries returns public projections for ids, keyed by user id.
func loadUserSummaries(ctx context.Context, db *gorm.DB, ids []uint) (map[uint]*models.UserSummary, error) {
	out := make(map[uint]*models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.UserSummary
	err := db.WithContext(ctx).
		Model(&models.User{}).
		Select("id", "name", "email", "is_verified_organizer").
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// resolveEventIncludes attaches the requested relations to events, issuing
// one query per relation regardless of how many events there are.
func resolveEventIncludes(ctx context.Context, db *gorm.DB, events []*models.Event, in Includes) error {
	if len(events) == 0 || len(in) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(events))
	organizerIDs := make([]uint, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
		organizerIDs = append(organizerIDs, e.OrganizerID)
	}
	ids = uniqueIDs(ids)

	if in.Has(IncludeOrganizer) {
		users, err := loadUserSummaries(ctx, db, uniqueIDs(organizerIDs))
		if err != nil {
			return storageError("include organizer", err)
		}
		for _, e := range events {
			e.Organizer = users[e.OrganizerID]
		}
	}
	if in.Has(IncludePhotos) {
		byEvent, err := loadChildren(ctx, db, "event_id", ids, func(p *models.EventPhoto) uint { return p.EventID })
		if err != nil {
			return storageError("include photos", err)
		}
		for _, e := range events {
			e.Photos = orEmpty(byEvent[e.ID])
		}
	}
	if in.Has(IncludeVotes) {
		byEvent, err := loadChildren(ctx, db, "event_id", ids, func(v *models.EventVote) uint { return v.EventID })
		if err != nil {
			return storageError("include votes", err)
		}
		for _, e := range events {
			e.Votes = orEmpty(byEvent[e.ID])
		}
	}
	if in.Has(IncludeFollowers) {
		byEvent, err := loadChildren(ctx, db, "event_id", ids, func(f *models.EventFollower) uint { return f.EventID })
		if err != nil {
			return storageError("include followers", err)
		}
		for _, e := range events {
			e.Followers = orEmpty(byEvent[e.ID])
		}
	}
	if in.Has(IncludeFeedback) {
		byEvent, err := loadChildren(ctx, db, "event_id", ids, func(f *models.EventFeedback) uint { return f.EventID })
		if err != nil {
			return storageError("include feedback", err)
		}
		for _, e := range events {
			e.Feedback = orEmpty(byEvent[e.ID])
		}
	}
	if in.Has(IncludeRegistrations) {
		byEvent, err := loadChildren(ctx, db, "event_id", ids, func(i *models.Interest) uint { return i.EventID })
		if err != nil {
			return storageError("include registrations", err)
		}
		for _, e := range events {
			e.Registrations = orEmpty(byEvent[e.ID])
		}
	}
	return nil
}

// resolveIssueIncludes is the issue counterpart of resolveEventIncludes.
// Anonymous issues never expose their reporter.
func resolveIssueIncludes(ctx context.Context, db *gorm.DB, issues []*models.Issue, in Includes) error {
	if len(issues) == 0 || len(in) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(issues))
	reporterIDs := make([]uint, 0, len(issues))
	for _, i := range issues {
		ids = append(ids, i.ID)
		if i.ReporterID != nil && !i.IsAnonymous {
			reporterIDs = append(reporterIDs, *i.ReporterID)
		}
	}
	ids = uniqueIDs(ids)

	if in.Has(IncludeReporter) {
		users, err := loadUserSummaries(ctx, db, uniqueIDs(reporterIDs))
		if err != nil {
			return storageError("include reporter", err)
		}
		for _, i := range issues {
			i.Reporter = nil
			if i.ReporterID != nil && !i.IsAnonymous {
				i.Reporter = users[*i.ReporterID]
			}
		}
	}
	if in.Has(IncludePhotos) {
		byIssue, err := loadChildren(ctx, db, "issue_id", ids, func(p *models.IssuePhoto) uint { return p.IssueID })
		if err != nil {
			return storageError("include photos", err)
		}
		for _, i := range issues {
			i.Photos = orEmpty(byIssue[i.ID])
		}
	}
	if in.Has(IncludeVotes) {
		byIssue, err := loadChildren(ctx, db, "issue_id", ids, func(v *models.IssueVote) uint { return v.IssueID })
		if err != nil {
			return storageError("include votes", err)
		}
		for _, i := range issues {
			i.Votes = orEmpty(byIssue[i.ID])
		}
	}
	if in.Has(IncludeFollowers) {
		byIssue, err := loadChildren(ctx, db, "issue_id", ids, func(f *models.IssueFollower) uint { return f.IssueID })
		if err != nil {
			return storageError("include followers", err)
		}
		for _, i := range issues {
			i.Followers = orEmpty(byIssue[i.ID])
		}
	}
	if in.Has(IncludeStatusUpdates) {
		byIssue, err := loadChildren(ctx, db, "issue_id", ids, func(u *models.IssueStatusUpdate) uint { return u.IssueID })
		if err != nil {
			return storageError("include status updates", err)
		}
		for _, i := range issues {
			i.StatusUpdates = orEmpty(byIssue[i.ID])
		}
	}
	return nil
}
