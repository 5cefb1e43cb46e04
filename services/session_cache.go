package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionListTTL = 10 * time.Minute

// SessionCache fronts the session-listing read path with Redis. Invalidation
// is a version bump: readers always address the current version's key, so a
// bump orphans every stale entry at once and TTLs clean them up.
type SessionCache struct {
	rdb *redis.Client
}

func NewSessionCache(rdb *redis.Client) *SessionCache {
	return &SessionCache{rdb: rdb}
}

func (c *SessionCache) keyVersion() string { return "sessions:list:version" }

func (c *SessionCache) keyList(version int64) string {
	return fmt.Sprintf("sessions:list:v%d", version)
}

func (c *SessionCache) version(ctx context.Context) int64 {
	v, err := c.rdb.Get(ctx, c.keyVersion()).Int64()
	if err != nil && err != redis.Nil {
		log.Printf("⚠️ [CACHE] Version read failed: %v", err)
	}
	return v
}

// GetListing returns the cached session listing payload, or nil on a miss.
func (c *SessionCache) GetListing(ctx context.Context) []byte {
	raw, err := c.rdb.Get(ctx, c.keyList(c.version(ctx))).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		log.Printf("⚠️ [CACHE] Listing read failed: %v", err)
		return nil
	}
	return raw
}

// SetListing backfills the listing cache after a DB read.
func (c *SessionCache) SetListing(ctx context.Context, payload []byte) {
	if err := c.rdb.Set(ctx, c.keyList(c.version(ctx)), payload, sessionListTTL).Err(); err != nil {
		log.Printf("⚠️ [CACHE] Listing write failed: %v", err)
	}
}

// Invalidate bumps the listing version. Called after every committed session
// insert; best-effort — a failed bump only means a stale listing until TTL.
func (c *SessionCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, c.keyVersion()).Err(); err != nil {
		log.Printf("⚠️ [CACHE] Invalidate failed: %v", err)
	}
}
