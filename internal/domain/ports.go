package domain

import (
	"context"
	"time"
)

type RoomRepository interface {
	ListRooms(ctx context.Context, f RoomFilter, pg PageQuery) (Page[Room], error)
	GetRoom(ctx context.Context, id string) (Room, error)
	InsertRoom(ctx context.Context, r Room) (Room, error)
	UpdateRoom(ctx context.Context, r Room) (Room, error)
	DeleteRoom(ctx context.Context, id string) error
	// ActiveBookingForRoom returns the id of the booking holding the room, if any.
	ActiveBookingForRoom(ctx context.Context, roomID string) (string, bool, error)
}

// BookingRepository write paths are atomic compound operations: readers never
// observe a room flag that disagrees with booking existence.
type BookingRepository interface {
	ListBookings(ctx context.Context, pg PageQuery) (Page[BookingView], error)
	GetBooking(ctx context.Context, id string) (BookingView, error)
	// CreateBooking inserts b and marks its room unavailable.
	CreateBooking(ctx context.Context, b Booking) (BookingView, error)
	UpdateBooking(ctx context.Context, b Booking) (BookingView, error)
	// DeleteBooking removes the booking and frees its room.
	DeleteBooking(ctx context.Context, id string) (Booking, error)
	// CheckoutBooking archives the record built by archive, frees the room
	// and removes the booking.
	CheckoutBooking(ctx context.Context, id string, archive func(BookingView) HistoryRecord) (HistoryRecord, error)
}

type HistoryRepository interface {
	ListHistory(ctx context.Context, pg PageQuery) (Page[HistoryRecord], error)
	Analytics(ctx context.Context) (Analytics, error)
}

type Store interface {
	RoomRepository
	BookingRepository
	HistoryRepository
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
