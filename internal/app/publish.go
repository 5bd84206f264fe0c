package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"frontdesk/internal/domain"
)

// emit publishes change notifications. Delivery failures are logged; the
// write they describe has already committed.
func emit(ctx context.Context, pub domain.Publisher, events ...domain.Event) {
	if pub == nil {
		return
	}
	now := time.Now().UTC()
	for _, e := range events {
		if e.At.IsZero() {
			e.At = now
		}
		if err := pub.Publish(ctx, e); err != nil {
			log.Warn().Err(err).Str("event", e.Name()).Str("id", e.ID).Msg("publish change event failed")
		}
	}
}

func changed(e domain.Entity, id string, k domain.ChangeKind) domain.Event {
	return domain.Event{Entity: e, ID: id, Kind: k}
}
