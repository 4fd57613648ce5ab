// Package credcache keeps the time-boxed face-verification record for each
// client. A record is honoured only while it is younger than the TTL; stale,
// negative or corrupt records are purged on read and never returned as valid.
package credcache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/biopass-web/internal/domain"
)

// DefaultTTL is how long a successful face verification is honoured.
const DefaultTTL = 5 * time.Minute

// storeSlack keeps the store-level expiry strictly after the logical TTL, so
// the record is still readable (and purgeable) when it goes stale.
const storeSlack = time.Minute

// Store is the client-state namespace the cache persists into.
type Store interface {
	Get(ctx context.Context, clientID, key string) (string, bool, error)
	Put(ctx context.Context, clientID, key, value string, expiresAt time.Time) error
	Delete(ctx context.Context, clientID, key string) error
}

// Cache reads and writes verification records.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// New builds a Cache. A non-positive ttl falls back to DefaultTTL.
func New(store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// TTL reports the configured freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Read reports whether clientID holds a fresh verification.
func (c *Cache) Read(ctx context.Context, clientID string) bool {
	raw, ok, err := c.store.Get(ctx, clientID, domain.StateKeyFaceVerification)
	if err != nil {
		slog.Warn("credential cache read failed", "client_id", clientID, "err", err)
		return false
	}
	if !ok {
		return false
	}
	var rec domain.CachedCredential
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		slog.Warn("purging corrupt verification record", "client_id", clientID, "err", err)
		c.purge(ctx, clientID)
		return false
	}
	if !c.fresh(rec) {
		slog.Debug("purging stale verification record", "client_id", clientID, "err", domain.ErrStaleCredential)
		c.purge(ctx, clientID)
		return false
	}
	return true
}

// Write overwrites the record. verified=false removes it; there is no negative caching.
func (c *Cache) Write(ctx context.Context, clientID string, verified bool) {
	if !verified {
		c.purge(ctx, clientID)
		return
	}
	now := c.now()
	rec, err := json.Marshal(domain.CachedCredential{Verified: true, Timestamp: now.UnixMilli()})
	if err != nil {
		slog.Error("marshal verification record", "err", err)
		return
	}
	if err := c.store.Put(ctx, clientID, domain.StateKeyFaceVerification, string(rec), now.Add(c.ttl+storeSlack)); err != nil {
		slog.Warn("credential cache write failed", "client_id", clientID, "err", err)
	}
}

// Invalidate drops the record, e.g. on logout.
func (c *Cache) Invalidate(ctx context.Context, clientID string) {
	c.purge(ctx, clientID)
}

// For binds the cache to one client.
func (c *Cache) For(clientID string) *ClientCache {
	return &ClientCache{cache: c, clientID: clientID}
}

func (c *Cache) fresh(rec domain.CachedCredential) bool {
	if !rec.Verified || rec.Timestamp == 0 {
		return false
	}
	return c.now().UnixMilli()-rec.Timestamp < c.ttl.Milliseconds()
}

func (c *Cache) purge(ctx context.Context, clientID string) {
	if err := c.store.Delete(ctx, clientID, domain.StateKeyFaceVerification); err != nil {
		slog.Warn("credential cache purge failed", "client_id", clientID, "err", err)
	}
}

// ClientCache is a Cache scoped to a single client id.
type ClientCache struct {
	cache    *Cache
	clientID string
}

func (b *ClientCache) Read(ctx context.Context) bool { return b.cache.Read(ctx, b.clientID) }

func (b *ClientCache) Write(ctx context.Context, verified bool) {
	b.cache.Write(ctx, b.clientID, verified)
}
