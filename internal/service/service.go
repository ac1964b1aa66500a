// Package service holds the in-process call interface of the content core.
// Services validate input, delegate persistence to repositories and fan out
// notifications after writes commit.
package service

import (
	"context"
	"time"

	"civicboard/internal/geo"
	"civicboard/internal/models"
	"civicboard/internal/query"
	"civicboard/internal/repository"
)

// Publisher delivers realtime messages. *notifications.Notifier satisfies it.
type Publisher interface {
	PublishNotifications(ctx context.Context, notifications []models.Notification) error
	PublishContentUpdate(ctx context.Context, ct models.ContentType, id uint, event string, data any) error
}

// Options configures pagination defaults and the clock shared by services.
type Options struct {
	DefaultPageLimit int
	MaxPageLimit     int
	Now              func() time.Time
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now().UTC()
	}
	return o.Now()
}

func (o Options) page(p query.Page) query.Page {
	return query.NewPage(p.Number, p.Limit, o.DefaultPageLimit, o.MaxPageLimit)
}

// ListOptions is a list request as callers express it. Page is clamped to the
// configured defaults before reaching storage.
type ListOptions struct {
	Filter  query.Filter
	Include []string
	Sort    string
	Page    query.Page
	Geo     *geo.Radius
}

func (o Options) listOptions(in ListOptions) repository.ListOptions {
	return repository.ListOptions{
		Filter:  in.Filter,
		Include: in.Include,
		Sort:    in.Sort,
		Page:    o.page(in.Page),
		Geo:     in.Geo,
		Now:     o.now(),
	}
}

type noopPublisher struct{}

func (noopPublisher) PublishNotifications(context.Context, []models.Notification) error { return nil }

func (noopPublisher) PublishContentUpdate(context.Context, models.ContentType, uint, string, any) error {
	return nil
}

func publisherOrNoop(p Publisher) Publisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
