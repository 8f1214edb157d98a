// Package notifications publishes domain events into Redis channels.
package notifications

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// AdminChannel is the channel master-administrator dashboards subscribe to.
const AdminChannel = "notifications:admin"

// UserChannel returns the notification channel name for a user.
func UserChannel(userID uint) string {
	return fmt.Sprintf("notifications:user:%d", userID)
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(
	ctx context.Context, userID uint, payload string,
) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishAdmin sends a notification payload to the master-administrator
// channel. Master admin dashboards subscribe to this to learn about new
// pending mode-switch requests without polling.
func (n *Notifier) PublishAdmin(ctx context.Context, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, AdminChannel, payload).Err()
}
