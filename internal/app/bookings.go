package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"frontdesk/internal/domain"
)

// BookingLedger manages active bookings. An active booking ends exactly once,
// either by checkout (archived) or by delete (discarded).
type BookingLedger struct {
	repo  domain.BookingRepository
	clock domain.Clock
	pub   domain.Publisher
	reads *ReadCache
}

func NewBookingLedger(repo domain.BookingRepository, clock domain.Clock, pub domain.Publisher, reads *ReadCache) *BookingLedger {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &BookingLedger{repo: repo, clock: clock, pub: pub, reads: reads}
}

func (s *BookingLedger) ListBookings(ctx context.Context, pg domain.PageQuery) (domain.Page[domain.BookingView], error) {
	pg = pg.Normalize()
	key := fmt.Sprintf("list:%d:%d", pg.Page, pg.Limit)
	return readThrough(ctx, s.reads, domain.EntityBooking, key, func() (domain.Page[domain.BookingView], error) {
		return s.repo.ListBookings(ctx, pg)
	})
}

func (s *BookingLedger) GetBooking(ctx context.Context, id string) (domain.BookingView, error) {
	return readThrough(ctx, s.reads, domain.EntityBooking, "id:"+id, func() (domain.BookingView, error) {
		return s.repo.GetBooking(ctx, id)
	})
}

func (s *BookingLedger) CreateBooking(ctx context.Context, in domain.NewBooking) (domain.BookingView, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return domain.BookingView{}, err
	}
	b := domain.Booking{
		ID:          uuid.NewString(),
		RoomID:      in.RoomID,
		GuestName:   in.GuestName,
		Nights:      in.Nights,
		CheckInDate: s.clock.Now(),
	}
	v, err := s.repo.CreateBooking(ctx, b)
	if err != nil {
		return domain.BookingView{}, err
	}
	log.Info().Str("booking_id", v.ID).Str("room_id", v.RoomID).Int("nights", v.Nights).Msg("booking created")
	emit(ctx, s.pub,
		changed(domain.EntityBooking, v.ID, domain.ChangeCreated),
		changed(domain.EntityRoom, v.RoomID, domain.ChangeUpdated),
	)
	return v, nil
}

func (s *BookingLedger) UpdateBooking(ctx context.Context, id string, p domain.BookingPatch) (domain.BookingView, error) {
	if err := p.Validate(); err != nil {
		return domain.BookingView{}, err
	}
	cur, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return domain.BookingView{}, err
	}
	v, err := s.repo.UpdateBooking(ctx, p.Apply(cur.Booking))
	if err != nil {
		return domain.BookingView{}, err
	}
	log.Info().Str("booking_id", id).Msg("booking updated")
	emit(ctx, s.pub, changed(domain.EntityBooking, id, domain.ChangeUpdated))
	return v, nil
}

func (s *BookingLedger) DeleteBooking(ctx context.Context, id string) error {
	b, err := s.repo.DeleteBooking(ctx, id)
	if err != nil {
		return err
	}
	log.Info().Str("booking_id", id).Str("room_id", b.RoomID).Msg("booking deleted")
	emit(ctx, s.pub,
		changed(domain.EntityBooking, id, domain.ChangeDeleted),
		changed(domain.EntityRoom, b.RoomID, domain.ChangeUpdated),
	)
	return nil
}

// CheckoutBooking archives the booking with the stay measured up to now.
func (s *BookingLedger) CheckoutBooking(ctx context.Context, id string) (domain.HistoryRecord, error) {
	now := s.clock.Now()
	rec, err := s.repo.CheckoutBooking(ctx, id, func(v domain.BookingView) domain.HistoryRecord {
		return domain.Archive(uuid.NewString(), v, now)
	})
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	log.Info().
		Str("booking_id", id).
		Str("room_id", rec.RoomID).
		Int("actual_nights", rec.ActualNightsStayed).
		Str("status", string(rec.Status)).
		Msg("booking checked out")
	emit(ctx, s.pub,
		changed(domain.EntityBooking, id, domain.ChangeCheckedOut),
		changed(domain.EntityHistory, rec.ID, domain.ChangeCreated),
		changed(domain.EntityRoom, rec.RoomID, domain.ChangeUpdated),
	)
	return rec, nil
}
