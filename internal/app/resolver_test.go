package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frontdesk/internal/app"
	"frontdesk/internal/domain"
)

// flakyBookings fails the first n disposals.
type flakyBookings struct {
	app.BookingCommands
	failures int
	calls    int
}

func (f *flakyBookings) CheckoutBooking(ctx context.Context, id string) (domain.HistoryRecord, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return domain.HistoryRecord{}, domain.ErrRemoteUnavailable
	}
	return f.BookingCommands.CheckoutBooking(ctx, id)
}

func (f *flakyBookings) DeleteBooking(ctx context.Context, id string) error {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return domain.ErrRemoteUnavailable
	}
	return f.BookingCommands.DeleteBooking(ctx, id)
}

// flakyRooms fails the first n forced room commands.
type flakyRooms struct {
	app.RoomCommands
	failures    int
	forcedCalls int
}

func (f *flakyRooms) ForceDeleteRoom(ctx context.Context, id string) error {
	f.forcedCalls++
	if f.failures > 0 {
		f.failures--
		return errors.New("connection reset")
	}
	return f.RoomCommands.ForceDeleteRoom(ctx, id)
}

func bookedRoom(t *testing.T, d *desk) (domain.Room, domain.BookingView) {
	t.Helper()
	r := d.room(t, 101, 100)
	b, err := d.bookings.CreateBooking(context.Background(), domain.NewBooking{RoomID: r.ID, GuestName: "Alice", Nights: 2})
	require.NoError(t, err)
	return r, b
}

func TestResolver_EndToEndCheckoutThenDelete(t *testing.T) {
	d := newDesk(t)
	ctx := context.Background()
	r, b := bookedRoom(t, d)
	var outcomes []app.Outcome
	res := app.NewResolver(d.rooms, d.bookings, d.pub)
	res.OnOutcome(func(o app.Outcome) { outcomes = append(outcomes, o) })

	out, err := res.Attempt(ctx, app.Mutation{Action: app.ActionDelete, RoomID: r.ID})
	require.NoError(t, err)
	require.NotNil(t, out.Conflict)
	assert.True(t, out.Conflict.Open)
	assert.Equal(t, app.ActionDelete, out.Conflict.PendingAction)
	assert.Equal(t, b.ID, out.Conflict.BookingID)
	assert.Equal(t, app.ConflictMessage, out.Conflict.Message)
	require.NotNil(t, out.Conflict.Booking)
	assert.Equal(t, "Alice", out.Conflict.Booking.GuestName)
	assert.Equal(t, 101, out.Conflict.Booking.RoomNo)
	assert.Equal(t, app.StateConflictDetected, res.State())

	d.clock.Advance(24 * time.Hour)
	require.NoError(t, res.Choose(app.DisposalCheckout))
	assert.Equal(t, app.StateDisposalChosen, res.State())
	assert.Equal(t, app.DisposalCheckout, res.Dialog().ChosenDisposal)

	done, err := res.Confirm(ctx)
	require.NoError(t, err)
	assert.True(t, done.Deleted)
	require.NotNil(t, done.Record)
	assert.Equal(t, domain.StatusEarlyCheckout, done.Record.Status)
	assert.Equal(t, app.StateDone, res.State())
	assert.False(t, res.Dialog().Open)
	assert.Nil(t, res.Context())

	_, err = d.rooms.GetRoom(ctx, r.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	h, err := d.history.ListHistory(ctx, domain.PageQuery{})
	require.NoError(t, err)
	require.Len(t, h.Items, 1)
	assert.Equal(t, "Alice", h.Items[0].GuestName)

	require.Len(t, outcomes, 1)
	assert.Equal(t, app.Outcome{Action: app.ActionDelete, Disposal: app.DisposalCheckout, Result: "resolved"}, outcomes[0])
	assert.Contains(t, d.pub.names(), "room.deleted")
	assertAvailabilityConsistent(t, d)
}

func TestResolver_ResolveUpdateWithDelete(t *testing.T) {
	d := newDesk(t)
	ctx := context.Background()
	r, b := bookedRoom(t, d)
	res := app.NewResolver(d.rooms, d.bookings, nil)

	out, err := res.Resolve(ctx, app.Mutation{Action: app.ActionUpdate, RoomID: r.ID, Fields: domain.RoomFields{Beds: ptr(3)}}, app.DisposalDelete)
	require.NoError(t, err)
	require.NotNil(t, out.Room)
	assert.Equal(t, 3, out.Room.Beds)
	assert.True(t, out.Room.Available)
	assert.Nil(t, out.Record)
	assert.Equal(t, app.DisposalDelete, out.Disposal)

	_, err = d.bookings.GetBooking(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	h, err := d.history.ListHistory(ctx, domain.PageQuery{})
	require.NoError(t, err)
	assert.Empty(t, h.Items)
	assertAvailabilityConsistent(t, d)
}

func TestResolver_NoConflictPassesThrough(t *testing.T) {
	d := newDesk(t)
	ctx := context.Background()
	r := d.room(t, 101, 100)
	res := app.NewResolver(d.rooms, d.bookings, nil)

	out, err := res.Attempt(ctx, app.Mutation{Action: app.ActionUpdate, RoomID: r.ID, Fields: domain.RoomFields{Beds: ptr(3)}})
	require.NoError(t, err)
	assert.Nil(t, out.Conflict)
	assert.Equal(t, 3, out.Room.Beds)
	assert.Equal(t, app.StateIdle, res.State())

	_, err = res.Attempt(ctx, app.Mutation{Action: app.ActionDelete, RoomID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, app.StateIdle, res.State())
}

func TestResolver_ConfirmWithoutSelection(t *testing.T) {
	d := newDesk(t)
	ctx := context.Background()
	r, _ := bookedRoom(t, d)
	res := app.NewResolver(d.rooms, d.bookings, nil)

	_, err := res.Attempt(ctx, app.Mutation{Action: app.ActionDelete, RoomID: r.ID})
	require.NoError(t, err)

	_, err = res.Confirm(ctx)
	ve, ok := domain.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "no action selected", ve.Reason)

	assert.Error(t, res.Choose("archive"))
	assert.Equal(t, app.StateConflictDetected, res.State())

	_, err = res.Resolve(ctx, app.Mutation{Action: app.ActionDelete, RoomID: r.ID}, app.DisposalNone)
	_, ok = domain.IsValidationError(err)
	assert.True(t, ok)
}

func TestResolver_CancelIsIdempotent(t *testing.T) {
	d := newDesk(t)
	ctx := context.Background()
	r, b := bookedRoom(t, d)
	res := app.NewResolver(d.rooms, d.bookings, nil)

	// nothing open
	res.Cancel()
	res.Cancel()
	assert.Equal(t, app.StateIdle, res.State())

	_, err := res.Attempt(ctx, app.Mutation{Action: app.ActionDelete, RoomID: r.ID})
	require.NoError(t, err)
	_, err = res.Attempt(ctx, app.Mutation{Action: app.ActionDelete, RoomID: r.ID})
	assert.ErrorIs(t, err, app.ErrConflictPending)

	res.Cancel()
	res.Cancel()
	assert.Equal(t, app.StateIdle, res.State())
	assert.False(t, res.Dialog().Open)
	_, err = res.Confirm(ctx)
	assert.ErrorIs(t, err, app.ErrNoConflict)

	// cancel has no side effects
	got, err := d.bookings.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.GuestName)
	room, err := d.rooms.GetRoom(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, room.Available)
}

func TestResolver_DisposalFailureKeepsContext(t *testing.T) {
	d := newDesk(t)
	ctx := context.Background()
	r, b := bookedRoom(t, d)
	bookings := &flakyBookings{BookingCommands: d.bookings, failures: 1}
	rooms := &flakyRooms{RoomCommands: d.rooms}
	res := app.NewResolver(rooms, bookings, nil)

	_, err := res.Resolve(ctx, app.Mutation{Action: app.ActionDelete, RoomID: r.ID}, app.DisposalCheckout)
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.Equal(t, app.StateFailed, res.State())
	assert.Equal(t, 0, rooms.forcedCalls, "room step must not run after a failed disposal")

	cc := res.Context()
	require.NotNil(t, cc)
	assert.False(t, cc.Disposed)
	assert.Equal(t, b.ID, cc.BookingID)

	out, err := res.Confirm(ctx)
	require.NoError(t, err)
	assert.True(t, out.Deleted)
	assert.Equal(t, 2, bookings.calls)
	assert.Equal(t, app.StateDone, res.State())
}

func TestResolver_RoomRetryFailureOnlyRetriesRoomStep(t *testing.T) {
	d := newDesk(t)
	ctx := context.Background()
	r, _ := bookedRoom(t, d)
	bookings := &flakyBookings{BookingCommands: d.bookings}
	rooms := &flakyRooms{RoomCommands: d.rooms, failures: 1}
	pub := &recordingPub{}
	res := app.NewResolver(rooms, bookings, pub)

	_, err := res.Resolve(ctx, app.Mutation{Action: app.ActionDelete, RoomID: r.ID}, app.DisposalDelete)
	require.Error(t, err)
	assert.Equal(t, app.StateFailed, res.State())
	cc := res.Context()
	require.NotNil(t, cc)
	assert.True(t, cc.Disposed)
	// the disposal is announced even though the room step failed
	assert.Equal(t, []string{"booking.deleted"}, pub.names())

	// disposal is pinned once done
	assert.Error(t, res.Choose(app.DisposalCheckout))

	out, err := res.Confirm(ctx)
	require.NoError(t, err)
	assert.True(t, out.Deleted)
	assert.Equal(t, 1, bookings.calls)
	assert.Equal(t, 2, rooms.forcedCalls)
	assert.Equal(t, []string{"booking.deleted", "room.deleted"}, pub.names())
	assertAvailabilityConsistent(t, d)
}

func TestResolver_InvalidMutation(t *testing.T) {
	d := newDesk(t)
	res := app.NewResolver(d.rooms, d.bookings, nil)

	_, err := res.Attempt(context.Background(), app.Mutation{Action: "rename", RoomID: "r1"})
	_, ok := domain.IsValidationError(err)
	assert.True(t, ok)

	_, err = res.Attempt(context.Background(), app.Mutation{Action: app.ActionUpdate, RoomID: "r1", Fields: domain.RoomFields{Beds: ptr(0)}})
	ve, ok := domain.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "beds", ve.Field)
}
