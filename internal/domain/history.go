package domain

import (
	"math"
	"time"
)

type HistoryStatus string

const (
	StatusCompleted     HistoryStatus = "completed"
	StatusEarlyCheckout HistoryStatus = "early_checkout"
)

// HistoryRecord is the immutable archive entry written at checkout. Room
// fields are snapshotted because the room may change or disappear later.
type HistoryRecord struct {
	ID                 string        `json:"id"`
	BookingID          string        `json:"bookingId"`
	GuestName          string        `json:"guestName"`
	RoomID             string        `json:"roomId"`
	RoomNo             int           `json:"roomNo"`
	RoomType           RoomType      `json:"roomType"`
	CheckInDate        time.Time     `json:"checkInDate"`
	CheckOutDate       time.Time     `json:"checkOutDate"`
	Nights             int           `json:"nights"`
	ActualNightsStayed int           `json:"actualNightsStayed"`
	PricePerNight      float64       `json:"pricePerNight"`
	TotalAmount        float64       `json:"totalAmount"`
	ActualTotalAmount  float64       `json:"actualTotalAmount"`
	Status             HistoryStatus `json:"status"`
}

type Analytics struct {
	TotalRevenue        float64 `json:"totalRevenue"`
	TotalBookings       int     `json:"totalBookings"`
	AverageStayDuration float64 `json:"averageStayDuration"`
}

type HistoryPage struct {
	Items      []HistoryRecord `json:"data"`
	Analytics  Analytics       `json:"analytics"`
	Pagination Pagination      `json:"pagination"`
}

// WholeNightsBetween counts complete 24h periods from from to to.
func WholeNightsBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	return int(to.Sub(from) / (24 * time.Hour))
}

// Archive turns an active booking into its history record at checkout time
// at. Both planned and actual amounts use the room price current at checkout.
func Archive(id string, b BookingView, at time.Time) HistoryRecord {
	actual := max(1, WholeNightsBetween(b.CheckInDate, at))
	status := StatusCompleted
	if actual < b.Nights {
		status = StatusEarlyCheckout
	}
	return HistoryRecord{
		ID:                 id,
		BookingID:          b.ID,
		GuestName:          b.GuestName,
		RoomID:             b.RoomID,
		RoomNo:             b.RoomNo,
		RoomType:           b.RoomType,
		CheckInDate:        b.CheckInDate,
		CheckOutDate:       at,
		Nights:             b.Nights,
		ActualNightsStayed: actual,
		PricePerNight:      b.PricePerNight,
		TotalAmount:        RoundMoney(float64(b.Nights) * b.PricePerNight),
		ActualTotalAmount:  RoundMoney(float64(actual) * b.PricePerNight),
		Status:             status,
	}
}

// Summarize computes analytics over a complete record set.
func Summarize(records []HistoryRecord) Analytics {
	revenue, nights := 0.0, 0
	for _, r := range records {
		revenue += r.ActualTotalAmount
		nights += r.ActualNightsStayed
	}
	return NewAnalytics(revenue, len(records), nights)
}

// NewAnalytics builds analytics from archive totals. Every store reports
// through it.
func NewAnalytics(revenue float64, bookings, nights int) Analytics {
	a := Analytics{TotalRevenue: RoundMoney(revenue), TotalBookings: bookings}
	if bookings > 0 {
		a.AverageStayDuration = float64(nights) / float64(bookings)
	}
	return a
}

func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
