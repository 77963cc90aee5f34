package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix = "user:%d"
	RoleKeyPrefix = "role:%s"
)

const (
	UserTTL = 5 * time.Minute
	RoleTTL = 30 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// RoleKey keys a role lookup, e.g. RoleKey("default") or RoleKey("name:User").
func RoleKey(lookup string) string {
	return fmt.Sprintf(RoleKeyPrefix, lookup)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidateRoles drops every cached role lookup.
func InvalidateRoles(ctx context.Context) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, fmt.Sprintf(RoleKeyPrefix, "*"), 100).Iterator()
	for iter.Next(ctx) {
		client.Del(ctx, iter.Val())
	}
}
