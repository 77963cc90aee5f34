package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	usedTokenKey = "used_token:%s"
	blacklistKey = "blacklist:%s"
)

// Ledger remembers consumed and revoked token IDs in Redis. A Ledger with a
// nil client accepts everything, so tokens stay reusable until they expire.
type Ledger struct {
	rdb *redis.Client
	now func() time.Time
}

// NewLedger returns a Ledger backed by rdb, which may be nil.
func NewLedger(rdb *redis.Client) *Ledger {
	return &Ledger{rdb: rdb, now: time.Now}
}

func (l *Ledger) ttl(claims *Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return DefaultExpiration
	}
	ttl := claims.ExpiresAt.Sub(l.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

// Consume marks the token as used. It returns false if it was already used.
func (l *Ledger) Consume(ctx context.Context, claims *Claims) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	ok, err := l.rdb.SetNX(ctx, fmt.Sprintf(usedTokenKey, claims.ID), string(claims.Action), l.ttl(claims)).Result()
	if err != nil {
		return false, fmt.Errorf("consume token: %w", err)
	}
	return ok, nil
}

// Release forgets a consumed token so it can be presented again.
func (l *Ledger) Release(ctx context.Context, claims *Claims) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	if err := l.rdb.Del(ctx, fmt.Sprintf(usedTokenKey, claims.ID)).Err(); err != nil {
		return fmt.Errorf("release token: %w", err)
	}
	return nil
}

// Revoke blacklists a session token until it would have expired.
func (l *Ledger) Revoke(ctx context.Context, claims *Claims) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	if err := l.rdb.Set(ctx, fmt.Sprintf(blacklistKey, claims.ID), "1", l.ttl(claims)).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the session token was revoked.
func (l *Ledger) IsRevoked(ctx context.Context, claims *Claims) (bool, error) {
	if l == nil || l.rdb == nil {
		return false, nil
	}
	n, err := l.rdb.Exists(ctx, fmt.Sprintf(blacklistKey, claims.ID)).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}
