// Package notifications publishes user notifications to Redis channels.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"

	"civicboard/internal/models"
	"civicboard/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client makes every publish a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}

// ContentChannel derives the channel carrying updates about one piece of content.
func ContentChannel(ct models.ContentType, id uint) string {
	return fmt.Sprintf("content:%s:%d", ct, id)
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishNotifications fans stored notifications out to their recipients.
// Delivery is best effort: failures are logged and the first one returned
// after every recipient was attempted.
func (n *Notifier) PublishNotifications(ctx context.Context, notifications []models.Notification) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	var firstErr error
	for _, note := range notifications {
		payload, err := json.Marshal(note)
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}
		if err := n.PublishUser(ctx, note.UserID, string(payload)); err != nil {
			observability.Logger.WarnContext(ctx, "notification publish failed",
				slog.Uint64("user_id", uint64(note.UserID)),
				slog.String("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// PublishContentUpdate announces a change to subscribers of a content channel.
func (n *Notifier) PublishContentUpdate(ctx context.Context, ct models.ContentType, id uint, event string, data any) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(map[string]any{
		"event":        event,
		"content_type": ct,
		"content_id":   id,
		"data":         data,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.rdb.Publish(ctx, ContentChannel(ct, id), payload).Err()
}

// StartUserSubscriber subscribes to every user channel and calls onMessage
// for each incoming message until ctx is cancelled.
func (n *Notifier) StartUserSubscriber(ctx context.Context, onMessage func(channel string, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "notifications:user:*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.Logger.Error("panic in notification subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
