package domain

import (
	"strings"
	"time"
)

// Booking is an active stay. Presence in the ledger is what makes it active;
// checkout and delete both remove it.
type Booking struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"roomId"`
	GuestName   string    `json:"guestName"`
	Nights      int       `json:"nights"`
	CheckInDate time.Time `json:"checkInDate"`
}

// BookingView is a booking joined with its room's current display fields.
type BookingView struct {
	Booking
	RoomNo        int      `json:"roomNo"`
	RoomType      RoomType `json:"roomType"`
	PricePerNight float64  `json:"pricePerNight"`
	TotalAmount   float64  `json:"totalAmount"`
}

// NewBookingView prices b at the room's current rate.
func NewBookingView(b Booking, r Room) BookingView {
	return BookingView{
		Booking:       b,
		RoomNo:        r.RoomNo,
		RoomType:      r.Type,
		PricePerNight: r.PricePerNight,
		TotalAmount:   RoundMoney(float64(b.Nights) * r.PricePerNight),
	}
}

type NewBooking struct {
	RoomID    string `json:"roomId" validate:"required"`
	GuestName string `json:"guestName" validate:"required,max=255"`
	Nights    int    `json:"nights" validate:"gte=1,lte=3650"`
}

func (n NewBooking) Normalize() NewBooking {
	n.RoomID = strings.TrimSpace(n.RoomID)
	n.GuestName = strings.TrimSpace(n.GuestName)
	return n
}

func (n NewBooking) Validate() error {
	return validateStruct(n.Normalize())
}

// BookingPatch carries the mutable fields of an active booking.
type BookingPatch struct {
	GuestName *string `json:"guestName,omitempty" validate:"omitnil,min=1,max=255"`
	Nights    *int    `json:"nights,omitempty" validate:"omitnil,gte=1,lte=3650"`
}

func (p BookingPatch) Normalize() BookingPatch {
	if p.GuestName != nil {
		g := strings.TrimSpace(*p.GuestName)
		p.GuestName = &g
	}
	return p
}

func (p BookingPatch) Validate() error {
	return validateStruct(p.Normalize())
}

func (p BookingPatch) Apply(b Booking) Booking {
	if p.GuestName != nil {
		b.GuestName = strings.TrimSpace(*p.GuestName)
	}
	if p.Nights != nil {
		b.Nights = *p.Nights
	}
	return b
}
