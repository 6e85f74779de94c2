package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Store is a byte-oriented key/value cache. A miss is (nil, false, nil);
// errors mean the backend itself is unavailable.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for ttl. A non-positive ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Purger is implemented by stores that can drop expired entries eagerly.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// Digest returns the hex sha256 of content. Selection cache keys embed it so
// keys stay short regardless of page size.
func Digest(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func expired(now, expiresAt time.Time) bool {
	return !expiresAt.IsZero() && !now.Before(expiresAt)
}
