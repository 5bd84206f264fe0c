package domain

import (
	"fmt"
	"strings"
)

type RoomType string

const (
	RoomSingle RoomType = "single"
	RoomDouble RoomType = "double"
	RoomSuite  RoomType = "suite"
)

func (t RoomType) Valid() bool {
	switch t {
	case RoomSingle, RoomDouble, RoomSuite:
		return true
	}
	return false
}

// Room is a unit of inventory. Available is derived: it is false exactly
// while an active booking references the room.
type Room struct {
	ID            string   `json:"id"`
	RoomNo        int      `json:"roomNo"`
	Type          RoomType `json:"type"`
	Beds          int      `json:"beds"`
	PricePerNight float64  `json:"pricePerNight"`
	Description   string   `json:"description,omitempty"`
	Available     bool     `json:"available"`
}

// RoomFields is the create/update payload. Nil fields are left untouched on
// update. Available is accepted for wire compatibility only; availability
// follows active bookings.
type RoomFields struct {
	RoomNo        *int      `json:"roomNo,omitempty" validate:"omitnil,gt=0,lte=2147483647"`
	Type          *RoomType `json:"type,omitempty" validate:"omitnil,oneof=single double suite"`
	Beds          *int      `json:"beds,omitempty" validate:"omitnil,gt=0,lte=1000"`
	PricePerNight *float64  `json:"pricePerNight,omitempty" validate:"omitnil,gt=0,lte=99999999.99"`
	Description   *string   `json:"description,omitempty"`
	Available     *bool     `json:"available,omitempty"`
}

// Normalize rounds the price to cents, which is what gets stored.
func (f RoomFields) Normalize() RoomFields {
	if f.PricePerNight != nil {
		p := RoundMoney(*f.PricePerNight)
		f.PricePerNight = &p
	}
	return f
}

func (f RoomFields) Validate() error {
	return validateStruct(f.Normalize())
}

// ValidateCreate additionally requires every mandatory field.
func (f RoomFields) ValidateCreate() error {
	switch {
	case f.RoomNo == nil:
		return NewValidationError("roomNo", "is required")
	case f.Type == nil:
		return NewValidationError("type", "is required")
	case f.Beds == nil:
		return NewValidationError("beds", "is required")
	case f.PricePerNight == nil:
		return NewValidationError("pricePerNight", "is required")
	}
	return f.Validate()
}

// Apply returns r with every non-nil field of f written over it.
func (f RoomFields) Apply(r Room) Room {
	if f.RoomNo != nil {
		r.RoomNo = *f.RoomNo
	}
	if f.Type != nil {
		r.Type = *f.Type
	}
	if f.Beds != nil {
		r.Beds = *f.Beds
	}
	if f.PricePerNight != nil {
		r.PricePerNight = RoundMoney(*f.PricePerNight)
	}
	if f.Description != nil {
		r.Description = strings.TrimSpace(*f.Description)
	}
	return r
}

// NewRoom builds a fresh, available room from validated fields.
func NewRoom(id string, f RoomFields) Room {
	return f.Apply(Room{ID: id, Available: true})
}

type RoomFilter struct {
	Type      *RoomType
	Available *bool
	MinBeds   *int
	MaxPrice  *float64
}

func (f RoomFilter) Match(r Room) bool {
	if f.Type != nil && r.Type != *f.Type {
		return false
	}
	if f.Available != nil && r.Available != *f.Available {
		return false
	}
	if f.MinBeds != nil && r.Beds < *f.MinBeds {
		return false
	}
	if f.MaxPrice != nil && r.PricePerNight > *f.MaxPrice {
		return false
	}
	return true
}

// Key renders the filter as a stable string for cache keys.
func (f RoomFilter) Key() string {
	parts := []string{"t=", "a=", "b=", "p="}
	if f.Type != nil {
		parts[0] += string(*f.Type)
	}
	if f.Available != nil {
		parts[1] += fmt.Sprint(*f.Available)
	}
	if f.MinBeds != nil {
		parts[2] += fmt.Sprint(*f.MinBeds)
	}
	if f.MaxPrice != nil {
		parts[3] += fmt.Sprint(*f.MaxPrice)
	}
	return strings.Join(parts, "|")
}
