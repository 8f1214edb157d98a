package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix          = "user:%d"
	ActiveRequestKeyPrefix = "moderequest:active:%d"
)

const (
	UserTTL          = 5 * time.Minute
	ActiveRequestTTL = 1 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// ActiveRequestKey caches the pending mode-switch request for an account.
// It is short lived and invalidated on every create and resolve so stale
// reads do not mask a resolution.
func ActiveRequestKey(accountID uint) string {
	return fmt.Sprintf(ActiveRequestKeyPrefix, accountID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateActiveRequest(ctx context.Context, accountID uint) {
	Invalidate(ctx, ActiveRequestKey(accountID))
}
