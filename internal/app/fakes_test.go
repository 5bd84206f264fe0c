package app_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"frontdesk/internal/domain"
)

// ---- fakes ----

// jsonCache stores values marshalled, like the redis adapter does, so a hit
// never aliases the value that was stored.
type jsonCache struct {
	mu    sync.Mutex
	store map[string][]byte
	gens  map[string]int64
	sets  int
}

func (c *jsonCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.gens[key]; ok {
		b, _ := json.Marshal(n)
		return true, json.Unmarshal(b, dst)
	}
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *jsonCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	c.sets++
	return nil
}

func (c *jsonCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

func (c *jsonCache) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens == nil {
		c.gens = map[string]int64{}
	}
	c.gens[key]++
	return c.gens[key], nil
}

type recordingPub struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPub) Publish(ctx context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPub) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Name())
	}
	return out
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time           { return c.t }
func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func ptr[T any](v T) *T { return &v }

func roomFields(no int, t domain.RoomType, beds int, price float64) domain.RoomFields {
	return domain.RoomFields{RoomNo: &no, Type: &t, Beds: &beds, PricePerNight: &price}
}
