package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"frontdesk/internal/domain"
)

// ReadCache is a read-through cache in front of the store. Keys are scoped by
// a per-entity generation counter, so bumping the counter invalidates every
// cached list of that entity at once. A nil *ReadCache reads straight through.
type ReadCache struct {
	cache domain.Cache
	ttl   time.Duration
}

func NewReadCache(c domain.Cache, ttl time.Duration) *ReadCache {
	if c == nil {
		return nil
	}
	return &ReadCache{cache: c, ttl: ttl}
}

func genKey(e domain.Entity) string { return "gen:" + string(e) }

func (rc *ReadCache) key(ctx context.Context, e domain.Entity, k string) string {
	var gen int64
	_, _ = rc.cache.Get(ctx, genKey(e), &gen)
	return fmt.Sprintf("%s:v%d:%s", e, gen, k)
}

// Invalidate drops every cached read of entity e.
func (rc *ReadCache) Invalidate(ctx context.Context, e domain.Entity) error {
	if rc == nil {
		return nil
	}
	_, err := rc.cache.Incr(ctx, genKey(e))
	return err
}

func readThrough[T any](ctx context.Context, rc *ReadCache, e domain.Entity, k string, load func() (T, error)) (T, error) {
	if rc == nil {
		return load()
	}
	key := rc.key(ctx, e, k)
	var out T
	if ok, _ := rc.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	// optional size guard
	if b, _ := json.Marshal(v); len(b) < 1_000_000 {
		if err := rc.cache.Set(ctx, key, v, int(rc.ttl.Seconds())); err != nil {
			log.Debug().Err(err).Str("key", key).Msg("cache set failed")
		}
	}
	return v, nil
}

// CacheInvalidator bumps cache generations for the entities an event touches.
// Bookings embed room fields and rooms derive availability from bookings, so
// those two always go together.
type CacheInvalidator struct {
	reads *ReadCache
}

func NewCacheInvalidator(rc *ReadCache) *CacheInvalidator {
	return &CacheInvalidator{reads: rc}
}

func (c *CacheInvalidator) Handle(ctx context.Context, e domain.Event) {
	if c == nil || c.reads == nil {
		return
	}
	targets := []domain.Entity{domain.EntityRoom, domain.EntityBooking}
	if e.Entity == domain.EntityHistory || e.Kind == domain.ChangeCheckedOut {
		targets = append(targets, domain.EntityHistory)
	}
	for _, t := range targets {
		if err := c.reads.Invalidate(ctx, t); err != nil {
			log.Warn().Err(err).Str("entity", string(t)).Str("event", e.Name()).Msg("cache invalidate failed")
		}
	}
}
