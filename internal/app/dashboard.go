package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"frontdesk/internal/domain"
)

type RoomQueries interface {
	ListRooms(ctx context.Context, f domain.RoomFilter, pg domain.PageQuery) (domain.Page[domain.Room], error)
}

type BookingQueries interface {
	ListBookings(ctx context.Context, pg domain.PageQuery) (domain.Page[domain.BookingView], error)
}

// Dashboard holds the room and booking read models shown at the desk and
// refetches them when a change event arrives.
type Dashboard struct {
	rooms    RoomQueries
	bookings BookingQueries

	mu          sync.RWMutex
	roomFilter  domain.RoomFilter
	roomPage    domain.PageQuery
	bookingPage domain.PageQuery
	roomView    domain.Page[domain.Room]
	bookingView domain.Page[domain.BookingView]
}

func NewDashboard(rooms RoomQueries, bookings BookingQueries) *Dashboard {
	return &Dashboard{
		rooms:       rooms,
		bookings:    bookings,
		roomPage:    domain.PageQuery{}.Normalize(),
		bookingPage: domain.PageQuery{}.Normalize(),
	}
}

func (d *Dashboard) SetRoomQuery(f domain.RoomFilter, pg domain.PageQuery) {
	d.mu.Lock()
	d.roomFilter, d.roomPage = f, pg.Normalize()
	d.mu.Unlock()
}

func (d *Dashboard) SetBookingPage(pg domain.PageQuery) {
	d.mu.Lock()
	d.bookingPage = pg.Normalize()
	d.mu.Unlock()
}

// Refresh reloads both lists concurrently. Neither view is replaced unless
// both loads succeed.
func (d *Dashboard) Refresh(ctx context.Context) error {
	d.mu.RLock()
	f, rp, bp := d.roomFilter, d.roomPage, d.bookingPage
	d.mu.RUnlock()

	var (
		rooms    domain.Page[domain.Room]
		bookings domain.Page[domain.BookingView]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rooms, err = d.rooms.ListRooms(gctx, f, rp)
		return err
	})
	g.Go(func() error {
		var err error
		bookings, err = d.bookings.ListBookings(gctx, bp)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	d.mu.Lock()
	d.roomView, d.bookingView = rooms, bookings
	d.mu.Unlock()
	return nil
}

// Handle is a change-event subscriber. History events do not touch the
// dashboard lists.
func (d *Dashboard) Handle(ctx context.Context, e domain.Event) {
	if e.Entity == domain.EntityHistory {
		return
	}
	if err := d.Refresh(ctx); err != nil {
		log.Warn().Err(err).Str("event", e.Name()).Msg("dashboard refresh failed")
	}
}

func (d *Dashboard) Rooms() domain.Page[domain.Room] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.roomView
}

func (d *Dashboard) Bookings() domain.Page[domain.BookingView] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.bookingView
}
