package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"frontdesk/internal/domain"
)

// RoomCommands is the room side of a conflict resolution. Satisfied by
// *RoomRegistry and by the remote hotelapi client.
type RoomCommands interface {
	UpdateRoom(ctx context.Context, id string, f domain.RoomFields) (domain.Room, error)
	ForceUpdateRoom(ctx context.Context, id string, f domain.RoomFields) (domain.Room, error)
	DeleteRoom(ctx context.Context, id string) error
	ForceDeleteRoom(ctx context.Context, id string) error
}

// BookingCommands is the booking side of a conflict resolution.
type BookingCommands interface {
	GetBooking(ctx context.Context, id string) (domain.BookingView, error)
	CheckoutBooking(ctx context.Context, id string) (domain.HistoryRecord, error)
	DeleteBooking(ctx context.Context, id string) error
}

const ConflictMessage = "This room has an active booking. What would you like to do with the current booking?"

var (
	ErrConflictPending = errors.New("a booking conflict is awaiting a decision")
	ErrNoConflict      = errors.New("no booking conflict to resolve")
)

type Action string

const (
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Disposal string

const (
	DisposalNone     Disposal = ""
	DisposalCheckout Disposal = "checkout"
	DisposalDelete   Disposal = "delete"
)

func (d Disposal) Valid() bool { return d == DisposalCheckout || d == DisposalDelete }

func ParseDisposal(s string) (Disposal, error) {
	d := Disposal(s)
	if !d.Valid() {
		return DisposalNone, domain.NewValidationError("disposal", "must be one of: checkout, delete")
	}
	return d, nil
}

type State int

const (
	StateIdle State = iota
	StateConflictDetected
	StateDisposalChosen
	StateResolving
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConflictDetected:
		return "conflict_detected"
	case StateDisposalChosen:
		return "disposal_chosen"
	case StateResolving:
		return "resolving"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Mutation is the room change the user asked for. Fields is ignored for
// deletes.
type Mutation struct {
	Action Action
	RoomID string
	Fields domain.RoomFields
}

func (m Mutation) validate() error {
	if m.RoomID == "" {
		return domain.NewValidationError("roomId", "is required")
	}
	switch m.Action {
	case ActionUpdate:
		return m.Fields.Validate()
	case ActionDelete:
		return nil
	}
	return domain.NewValidationError("action", "must be one of: update, delete")
}

// ConflictContext lives from the blocked mutation until success or cancel.
type ConflictContext struct {
	Mutation  Mutation
	BookingID string
	Booking   *domain.BookingView
	Disposal  Disposal
	// Disposed is set once the booking has been checked out or deleted, so a
	// retried Confirm only repeats the room step.
	Disposed bool
	Record   *domain.HistoryRecord
}

// Dialog is the read model handed to whatever renders the conflict prompt.
type Dialog struct {
	Open           bool                `json:"open"`
	State          string              `json:"state"`
	PendingAction  Action              `json:"pendingAction,omitempty"`
	RoomID         string              `json:"roomId,omitempty"`
	Room           *domain.RoomFields  `json:"room,omitempty"`
	BookingID      string              `json:"bookingId,omitempty"`
	Booking        *domain.BookingView `json:"booking,omitempty"`
	Message        string              `json:"message,omitempty"`
	ChosenDisposal Disposal            `json:"chosenDisposal,omitempty"`
}

// Result of a room mutation driven through the resolver. Conflict is set,
// and nothing else, when the mutation is blocked and awaits a decision.
type Result struct {
	Room     *domain.Room          `json:"room,omitempty"`
	Deleted  bool                  `json:"deleted,omitempty"`
	Disposal Disposal              `json:"disposal,omitempty"`
	Record   *domain.HistoryRecord `json:"record,omitempty"`
	Conflict *Dialog               `json:"conflict,omitempty"`
}

type Outcome struct {
	Action   Action
	Disposal Disposal
	Result   string // resolved, disposal_failed, retry_failed, cancelled
}

// Resolver turns "dispose of the blocking booking, then retry the room
// change" into one logical operation. It is a small state machine:
//
//	Idle -> ConflictDetected -> DisposalChosen -> Resolving -> Done | Failed
//
// Failed keeps the context so the caller can confirm again or cancel.
type Resolver struct {
	mu        sync.Mutex
	rooms     RoomCommands
	bookings  BookingCommands
	pub       domain.Publisher
	onOutcome func(Outcome)

	state State
	cc    *ConflictContext
}

func NewResolver(rooms RoomCommands, bookings BookingCommands, pub domain.Publisher) *Resolver {
	return &Resolver{rooms: rooms, bookings: bookings, pub: pub}
}

// OnOutcome registers a hook called when a conflict ends or a confirm fails.
func (r *Resolver) OnOutcome(fn func(Outcome)) { r.onOutcome = fn }

func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Resolver) Context() *ConflictContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cc == nil {
		return nil
	}
	cp := *r.cc
	return &cp
}

func (r *Resolver) Dialog() Dialog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dialogLocked()
}

func (r *Resolver) dialogLocked() Dialog {
	d := Dialog{State: r.state.String()}
	if r.cc == nil {
		return d
	}
	d.Open = true
	d.PendingAction = r.cc.Mutation.Action
	d.RoomID = r.cc.Mutation.RoomID
	if r.cc.Mutation.Action == ActionUpdate {
		f := r.cc.Mutation.Fields
		d.Room = &f
	}
	d.BookingID = r.cc.BookingID
	d.Booking = r.cc.Booking
	d.Message = ConflictMessage
	d.ChosenDisposal = r.cc.Disposal
	return d
}

// Attempt runs m. A blocking booking opens a conflict instead of failing;
// every other error is returned unchanged.
func (r *Resolver) Attempt(ctx context.Context, m Mutation) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cc != nil {
		return Result{}, ErrConflictPending
	}
	if err := m.validate(); err != nil {
		return Result{}, err
	}

	res, err := r.apply(ctx, m, false)
	if err == nil {
		r.state = StateIdle
		return res, nil
	}
	ce, ok := domain.IsRoomConflict(err)
	if !ok {
		return Result{}, err
	}

	cc := &ConflictContext{Mutation: m, BookingID: ce.BookingID}
	b, gerr := r.bookings.GetBooking(ctx, ce.BookingID)
	if gerr != nil {
		log.Warn().Err(gerr).Str("booking_id", ce.BookingID).Msg("conflict: blocking booking details unavailable")
	} else {
		cc.Booking = &b
	}
	r.cc = cc
	r.state = StateConflictDetected
	log.Info().
		Str("room_id", m.RoomID).
		Str("booking_id", ce.BookingID).
		Str("action", string(m.Action)).
		Msg("conflict detected")

	d := r.dialogLocked()
	return Result{Conflict: &d}, nil
}

// Choose records how the blocking booking should be disposed of.
func (r *Resolver) Choose(d Disposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cc == nil {
		return ErrNoConflict
	}
	if !d.Valid() {
		return domain.NewValidationError("disposal", "must be one of: checkout, delete")
	}
	if r.cc.Disposed && d != r.cc.Disposal {
		return domain.NewValidationError("disposal", "booking already disposed by "+string(r.cc.Disposal))
	}
	r.cc.Disposal = d
	if r.state != StateFailed {
		r.state = StateDisposalChosen
	}
	return nil
}

// Confirm disposes of the booking and then retries the room change with the
// conflict check skipped. The two steps never overlap.
func (r *Resolver) Confirm(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cc == nil {
		return Result{}, ErrNoConflict
	}
	if !r.cc.Disposal.Valid() {
		return Result{}, domain.NewValidationError("", "no action selected")
	}
	cc := r.cc
	r.state = StateResolving

	if !cc.Disposed {
		if err := r.dispose(ctx, cc); err != nil {
			r.state = StateFailed
			r.report(cc, "disposal_failed")
			log.Warn().Err(err).Str("booking_id", cc.BookingID).Str("disposal", string(cc.Disposal)).Msg("conflict: disposal failed")
			return Result{}, fmt.Errorf("%s booking %s: %w", cc.Disposal, cc.BookingID, err)
		}
		cc.Disposed = true

		// the booking is gone even if the room step below fails
		bookingKind := domain.ChangeDeleted
		if cc.Disposal == DisposalCheckout {
			bookingKind = domain.ChangeCheckedOut
		}
		emit(ctx, r.pub, changed(domain.EntityBooking, cc.BookingID, bookingKind))
	}

	res, err := r.apply(ctx, cc.Mutation, true)
	if err != nil {
		r.state = StateFailed
		r.report(cc, "retry_failed")
		log.Warn().Err(err).Str("room_id", cc.Mutation.RoomID).Str("action", string(cc.Mutation.Action)).Msg("conflict: room retry failed")
		return Result{}, fmt.Errorf("%s room %s: %w", cc.Mutation.Action, cc.Mutation.RoomID, err)
	}
	res.Disposal = cc.Disposal
	res.Record = cc.Record

	r.cc = nil
	r.state = StateDone
	r.report(cc, "resolved")
	log.Info().
		Str("room_id", cc.Mutation.RoomID).
		Str("booking_id", cc.BookingID).
		Str("action", string(cc.Mutation.Action)).
		Str("disposal", string(cc.Disposal)).
		Msg("conflict resolved")

	roomKind := domain.ChangeUpdated
	if cc.Mutation.Action == ActionDelete {
		roomKind = domain.ChangeDeleted
	}
	emit(ctx, r.pub, changed(domain.EntityRoom, cc.Mutation.RoomID, roomKind))
	return res, nil
}

// Resolve is the single-call form: attempt m and, if blocked, dispose of the
// booking with d and retry. d is checked before anything runs.
func (r *Resolver) Resolve(ctx context.Context, m Mutation, d Disposal) (Result, error) {
	if !d.Valid() {
		return Result{}, domain.NewValidationError("", "no action selected")
	}
	res, err := r.Attempt(ctx, m)
	if err != nil || res.Conflict == nil {
		return res, err
	}
	if err := r.Choose(d); err != nil {
		return Result{}, err
	}
	return r.Confirm(ctx)
}

// Cancel drops any open conflict. Safe to call at any time.
func (r *Resolver) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cc == nil {
		return
	}
	cc := r.cc
	r.cc = nil
	r.state = StateIdle
	r.report(cc, "cancelled")
	log.Info().Str("room_id", cc.Mutation.RoomID).Str("booking_id", cc.BookingID).Msg("conflict cancelled")
}

func (r *Resolver) dispose(ctx context.Context, cc *ConflictContext) error {
	switch cc.Disposal {
	case DisposalCheckout:
		rec, err := r.bookings.CheckoutBooking(ctx, cc.BookingID)
		if err != nil {
			return err
		}
		cc.Record = &rec
		return nil
	case DisposalDelete:
		return r.bookings.DeleteBooking(ctx, cc.BookingID)
	}
	return domain.NewValidationError("", "no action selected")
}

func (r *Resolver) apply(ctx context.Context, m Mutation, force bool) (Result, error) {
	switch m.Action {
	case ActionUpdate:
		update := r.rooms.UpdateRoom
		if force {
			update = r.rooms.ForceUpdateRoom
		}
		room, err := update(ctx, m.RoomID, m.Fields)
		if err != nil {
			return Result{}, err
		}
		return Result{Room: &room}, nil
	case ActionDelete:
		del := r.rooms.DeleteRoom
		if force {
			del = r.rooms.ForceDeleteRoom
		}
		if err := del(ctx, m.RoomID); err != nil {
			return Result{}, err
		}
		return Result{Deleted: true}, nil
	}
	return Result{}, domain.NewValidationError("action", "must be one of: update, delete")
}

func (r *Resolver) report(cc *ConflictContext, result string) {
	if r.onOutcome != nil {
		r.onOutcome(Outcome{Action: cc.Mutation.Action, Disposal: cc.Disposal, Result: result})
	}
}
