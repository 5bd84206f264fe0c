// Package events delivers domain change notifications to in-process
// subscribers and fans them out to other publishers.
package events

import (
	"context"
	"errors"
	"sync"

	"frontdesk/internal/domain"
)

type Handler func(ctx context.Context, e domain.Event)

// Bus calls every subscriber synchronously, in subscription order, before
// Publish returns.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) Publish(ctx context.Context, e domain.Event) error {
	b.mu.RLock()
	hs := make([]Handler, len(b.handlers))
	copy(hs, b.handlers)
	b.mu.RUnlock()
	for _, h := range hs {
		h(ctx, e)
	}
	return nil
}

// Multi publishes to each publisher in turn and joins their errors.
type Multi []domain.Publisher

func (m Multi) Publish(ctx context.Context, e domain.Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
