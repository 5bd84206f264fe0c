// Package memory is a process-local domain.Store. A single mutex makes every
// compound write (booking + room flag, checkout triple) atomic to readers.
package memory

import (
	"context"
	"sort"
	"sync"

	"frontdesk/internal/domain"
)

type Store struct {
	mu       sync.Mutex
	rooms    map[string]domain.Room
	bookings map[string]domain.Booking
	byRoom   map[string]string // room id -> active booking id
	history  []domain.HistoryRecord
}

func New() *Store {
	return &Store{
		rooms:    make(map[string]domain.Room),
		bookings: make(map[string]domain.Booking),
		byRoom:   make(map[string]string),
	}
}

// room returns the stored room with availability derived from bookings.
// Callers hold s.mu.
func (s *Store) room(id string) (domain.Room, bool) {
	r, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, false
	}
	_, booked := s.byRoom[id]
	r.Available = !booked
	return r, true
}

func (s *Store) view(b domain.Booking) domain.BookingView {
	r, _ := s.room(b.RoomID)
	return domain.NewBookingView(b, r)
}

func (s *Store) ListRooms(ctx context.Context, f domain.RoomFilter, pg domain.PageQuery) (domain.Page[domain.Room], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Room, 0, len(s.rooms))
	for id := range s.rooms {
		r, _ := s.room(id)
		if f.Match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoomNo != out[j].RoomNo {
			return out[i].RoomNo < out[j].RoomNo
		}
		return out[i].ID < out[j].ID
	})
	return domain.Paginate(out, pg), nil
}

func (s *Store) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.room(id)
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *Store) InsertRoom(ctx context.Context, r domain.Room) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r
	out, _ := s.room(r.ID)
	return out, nil
}

func (s *Store) UpdateRoom(ctx context.Context, r domain.Room) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[r.ID]; !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	s.rooms[r.ID] = r
	out, _ := s.room(r.ID)
	return out, nil
}

// DeleteRoom refuses to orphan a booking even when the caller skipped its
// own conflict check.
func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return domain.ErrNotFound
	}
	if bid, ok := s.byRoom[id]; ok {
		return &domain.RoomHasActiveBookingError{RoomID: id, BookingID: bid}
	}
	delete(s.rooms, id)
	return nil
}

func (s *Store) ActiveBookingForRoom(ctx context.Context, roomID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bid, ok := s.byRoom[roomID]
	return bid, ok, nil
}

func (s *Store) ListBookings(ctx context.Context, pg domain.PageQuery) (domain.Page[domain.BookingView], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.BookingView, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, s.view(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckInDate.Equal(out[j].CheckInDate) {
			return out[i].CheckInDate.After(out[j].CheckInDate)
		}
		return out[i].ID < out[j].ID
	})
	return domain.Paginate(out, pg), nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (domain.BookingView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.BookingView{}, domain.ErrNotFound
	}
	return s.view(b), nil
}

func (s *Store) CreateBooking(ctx context.Context, b domain.Booking) (domain.BookingView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[b.RoomID]; !ok {
		return domain.BookingView{}, domain.ErrNotFound
	}
	if _, taken := s.byRoom[b.RoomID]; taken {
		return domain.BookingView{}, domain.ErrRoomUnavailable
	}
	s.bookings[b.ID] = b
	s.byRoom[b.RoomID] = b.ID
	return s.view(b), nil
}

func (s *Store) UpdateBooking(ctx context.Context, b domain.Booking) (domain.BookingView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.bookings[b.ID]
	if !ok {
		return domain.BookingView{}, domain.ErrNotFound
	}
	// room and check-in are fixed for the life of a booking
	cur.GuestName = b.GuestName
	cur.Nights = b.Nights
	s.bookings[b.ID] = cur
	return s.view(cur), nil
}

func (s *Store) DeleteBooking(ctx context.Context, id string) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	delete(s.bookings, id)
	delete(s.byRoom, b.RoomID)
	return b, nil
}

func (s *Store) CheckoutBooking(ctx context.Context, id string, archive func(domain.BookingView) domain.HistoryRecord) (domain.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.HistoryRecord{}, domain.ErrNotFound
	}
	rec := archive(s.view(b))
	s.history = append(s.history, rec)
	delete(s.bookings, id)
	delete(s.byRoom, b.RoomID)
	return rec, nil
}

func (s *Store) ListHistory(ctx context.Context, pg domain.PageQuery) (domain.Page[domain.HistoryRecord], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// newest first; append order breaks ties
	out := make([]domain.HistoryRecord, len(s.history))
	for i, r := range s.history {
		out[len(s.history)-1-i] = r
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CheckOutDate.After(out[j].CheckOutDate)
	})
	return domain.Paginate(out, pg), nil
}

func (s *Store) Analytics(ctx context.Context) (domain.Analytics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Summarize(s.history), nil
}

var _ domain.Store = (*Store)(nil)
