package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrRoomUnavailable   = errors.New("room unavailable")
	ErrRemoteUnavailable = errors.New("remote unavailable")
)

// ValidationError reports bad input shape or range. Field is the wire name
// of the offending field and may be empty for whole-request problems.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// RoomHasActiveBookingError is returned by room mutations blocked by a live
// booking. It is recoverable: the conflict resolver turns it into a dialog.
type RoomHasActiveBookingError struct {
	RoomID    string
	BookingID string
}

func (e *RoomHasActiveBookingError) Error() string {
	return fmt.Sprintf("room %s has active booking %s", e.RoomID, e.BookingID)
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func IsRoomConflict(err error) (*RoomHasActiveBookingError, bool) {
	var ce *RoomHasActiveBookingError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
