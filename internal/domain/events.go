package domain

import "time"

type Entity string

const (
	EntityRoom    Entity = "room"
	EntityBooking Entity = "booking"
	EntityHistory Entity = "history"
)

type ChangeKind string

const (
	ChangeCreated    ChangeKind = "created"
	ChangeUpdated    ChangeKind = "updated"
	ChangeDeleted    ChangeKind = "deleted"
	ChangeCheckedOut ChangeKind = "checked_out"
)

// Event says "this entity changed". Consumers decide what to refetch.
type Event struct {
	Entity Entity     `json:"entity"`
	ID     string     `json:"id"`
	Kind   ChangeKind `json:"kind"`
	At     time.Time  `json:"at"`
}

func (e Event) Name() string { return string(e.Entity) + "." + string(e.Kind) }
