package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"frontdesk/internal/domain"
)

// RoomRegistry owns room inventory. Plain update and delete refuse to touch a
// room held by an active booking; the Force variants skip that check and are
// meant to run after the booking has been disposed of.
type RoomRegistry struct {
	repo  domain.RoomRepository
	pub   domain.Publisher
	reads *ReadCache
}

func NewRoomRegistry(repo domain.RoomRepository, pub domain.Publisher, reads *ReadCache) *RoomRegistry {
	return &RoomRegistry{repo: repo, pub: pub, reads: reads}
}

func (s *RoomRegistry) ListRooms(ctx context.Context, f domain.RoomFilter, pg domain.PageQuery) (domain.Page[domain.Room], error) {
	pg = pg.Normalize()
	key := fmt.Sprintf("list:%s:%d:%d", f.Key(), pg.Page, pg.Limit)
	return readThrough(ctx, s.reads, domain.EntityRoom, key, func() (domain.Page[domain.Room], error) {
		return s.repo.ListRooms(ctx, f, pg)
	})
}

func (s *RoomRegistry) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	return readThrough(ctx, s.reads, domain.EntityRoom, "id:"+id, func() (domain.Room, error) {
		return s.repo.GetRoom(ctx, id)
	})
}

func (s *RoomRegistry) CreateRoom(ctx context.Context, f domain.RoomFields) (domain.Room, error) {
	if err := f.ValidateCreate(); err != nil {
		return domain.Room{}, err
	}
	r, err := s.repo.InsertRoom(ctx, domain.NewRoom(uuid.NewString(), f))
	if err != nil {
		return domain.Room{}, err
	}
	log.Info().Str("room_id", r.ID).Int("room_no", r.RoomNo).Msg("room created")
	emit(ctx, s.pub, changed(domain.EntityRoom, r.ID, domain.ChangeCreated))
	return r, nil
}

func (s *RoomRegistry) UpdateRoom(ctx context.Context, id string, f domain.RoomFields) (domain.Room, error) {
	if err := f.Validate(); err != nil {
		return domain.Room{}, err
	}
	if err := s.guard(ctx, id); err != nil {
		return domain.Room{}, err
	}
	return s.ForceUpdateRoom(ctx, id, f)
}

func (s *RoomRegistry) ForceUpdateRoom(ctx context.Context, id string, f domain.RoomFields) (domain.Room, error) {
	if err := f.Validate(); err != nil {
		return domain.Room{}, err
	}
	cur, err := s.repo.GetRoom(ctx, id)
	if err != nil {
		return domain.Room{}, err
	}
	r, err := s.repo.UpdateRoom(ctx, f.Apply(cur))
	if err != nil {
		return domain.Room{}, err
	}
	log.Info().Str("room_id", id).Msg("room updated")
	emit(ctx, s.pub, changed(domain.EntityRoom, id, domain.ChangeUpdated))
	return r, nil
}

func (s *RoomRegistry) DeleteRoom(ctx context.Context, id string) error {
	if err := s.guard(ctx, id); err != nil {
		return err
	}
	return s.ForceDeleteRoom(ctx, id)
}

func (s *RoomRegistry) ForceDeleteRoom(ctx context.Context, id string) error {
	if err := s.repo.DeleteRoom(ctx, id); err != nil {
		return err
	}
	log.Info().Str("room_id", id).Msg("room deleted")
	emit(ctx, s.pub, changed(domain.EntityRoom, id, domain.ChangeDeleted))
	return nil
}

// guard reports a live booking on the room as a recoverable conflict.
func (s *RoomRegistry) guard(ctx context.Context, id string) error {
	bid, ok, err := s.repo.ActiveBookingForRoom(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		log.Info().Str("room_id", id).Str("booking_id", bid).Msg("room mutation blocked by active booking")
		return &domain.RoomHasActiveBookingError{RoomID: id, BookingID: bid}
	}
	return nil
}
