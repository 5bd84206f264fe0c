package redisad

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"frontdesk/internal/domain"
)

// Publisher broadcasts change events on a Redis channel so other processes
// (desk clients, other API replicas) can refresh.
type Publisher struct {
	c       *redis.Client
	channel string
}

func NewPublisher(c *redis.Client, channel string) *Publisher {
	return &Publisher{c: c, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, e domain.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.c.Publish(ctx, p.channel, b).Err()
}

type Subscriber struct {
	c       *redis.Client
	channel string
}

func NewSubscriber(c *redis.Client, channel string) *Subscriber {
	return &Subscriber{c: c, channel: channel}
}

// Run delivers events to fn until ctx is done. Malformed payloads are logged
// and skipped. ready, if non-nil, is closed once the subscription is live.
func (s *Subscriber) Run(ctx context.Context, ready chan<- struct{}, fn func(context.Context, domain.Event)) error {
	ps := s.c.Subscribe(ctx, s.channel)
	defer ps.Close()

	// wait for the subscribe confirmation so no publish is missed
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var e domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				log.Warn().Err(err).Str("channel", msg.Channel).Msg("drop malformed change event")
				continue
			}
			fn(ctx, e)
		}
	}
}
