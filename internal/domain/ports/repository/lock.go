package repository

import (
	"context"
	"time"
)

// Locker serializes turn recording per user when enabled. TryLock returns a
// token that must be presented to Unlock so an expired holder cannot release
// a lock it no longer owns.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
