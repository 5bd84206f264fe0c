package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"frontdesk/internal/adapters/observability"
	redisad "frontdesk/internal/adapters/redis"
	"frontdesk/internal/app"
	"frontdesk/internal/domain"
)

// flagsSet reports which flags were given on the command line, so absent
// optional values stay nil instead of taking the zero value.
func flagsSet(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

type roomFlags struct {
	no    int
	typ   string
	beds  int
	price float64
	desc  string
}

func (rf *roomFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&rf.no, "no", 0, "room number")
	fs.StringVar(&rf.typ, "type", "", "single|double|suite")
	fs.IntVar(&rf.beds, "beds", 0, "number of beds")
	fs.Float64Var(&rf.price, "price", 0, "price per night")
	fs.StringVar(&rf.desc, "desc", "", "description")
}

func (rf *roomFlags) fields(set map[string]bool) domain.RoomFields {
	var f domain.RoomFields
	if set["no"] {
		f.RoomNo = &rf.no
	}
	if set["type"] {
		t := domain.RoomType(rf.typ)
		f.Type = &t
	}
	if set["beds"] {
		f.Beds = &rf.beds
	}
	if set["price"] {
		f.PricePerNight = &rf.price
	}
	if set["desc"] {
		f.Description = &rf.desc
	}
	return f
}

func pageFlags(fs *flag.FlagSet) *domain.PageQuery {
	pg := &domain.PageQuery{}
	fs.IntVar(&pg.Page, "page", domain.DefaultPage, "page number")
	fs.IntVar(&pg.Limit, "limit", domain.DefaultLimit, "page size")
	return pg
}

func cmdRooms(ctx context.Context, d *desk, args []string) error {
	fs := newFlags("rooms")
	var (
		typ       = fs.String("type", "", "filter by room type")
		available = fs.Bool("available", false, "filter by availability")
		minBeds   = fs.Int("min-beds", 0, "minimum number of beds")
		maxPrice  = fs.Float64("max-price", 0, "maximum price per night")
	)
	pg := pageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	set := flagsSet(fs)

	var f domain.RoomFilter
	if set["type"] {
		t := domain.RoomType(*typ)
		f.Type = &t
	}
	if set["available"] {
		f.Available = available
	}
	if set["min-beds"] {
		f.MinBeds = minBeds
	}
	if set["max-price"] {
		f.MaxPrice = maxPrice
	}
	page, err := d.api.ListRooms(ctx, f, *pg)
	if err != nil {
		return err
	}
	return d.print(page)
}

func cmdRoom(ctx context.Context, d *desk, args []string) error {
	fs := newFlags("room")
	id := fs.String("id", "", "room id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(*id); err != nil {
		return err
	}
	room, err := d.api.GetRoom(ctx, *id)
	if err != nil {
		return err
	}
	return d.print(room)
}

func cmdRoomAdd(ctx context.Context, d *desk, args []string) error {
	fs := newFlags("room-add")
	var rf roomFlags
	rf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	room, err := d.api.CreateRoom(ctx, rf.fields(flagsSet(fs)))
	if err != nil {
		return err
	}
	return d.print(room)
}

func cmdRoomUpdate(ctx context.Context, d *desk, args []string) error {
	fs := newFlags("room-update")
	id := fs.String("id", "", "room id")
	dispose := fs.String("dispose", "", "what to do with a blocking booking: checkout|delete")
	var rf roomFlags
	rf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(*id); err != nil {
		return err
	}
	m := app.Mutation{Action: app.ActionUpdate, RoomID: *id, Fields: rf.fields(flagsSet(fs))}
	return d.mutateRoom(ctx, m, *dispose)
}

func cmdRoomDelete(ctx context.Context, d *desk, args []string) error {
	fs := newFlags("room-delete")
	id := fs.String("id", "", "room id")
	dispose := fs.String("dispose", "", "what to do with a blocking booking: checkout|delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(*id); err != nil {
		return err
	}
	return d.mutateRoom(ctx, app.Mutation{Action: app.ActionDelete, RoomID: *id}, *dispose)
}

// mutateRoom drives a room change through the resolver. Without a disposal a
// blocked change prints the conflict dialog and leaves the booking alone.
func (d *desk) mutateRoom(ctx context.Context, m app.Mutation, dispose string) error {
	if dispose != "" {
		disp, err := app.ParseDisposal(dispose)
		if err != nil {
			return err
		}
		res, err := d.resolver.Resolve(ctx, m, disp)
		if err != nil {
			if d.resolver.State() == app.StateFailed {
				_ = d.print(d.resolver.Dialog())
				d.resolver.Cancel()
			}
			return err
		}
		return d.printResolved(res)
	}

	res, err := d.resolver.Attempt(ctx, m)
	if err != nil {
		return err
	}
	if res.Conflict != nil {
		dialog := *res.Conflict
		d.resolver.Cancel()
		if err := d.print(dialog); err != nil {
			return err
		}
		return &requiresAction{dialog: dialog}
	}
	return d.printResolved(res)
}

// printResolved prints the mutation result together with the refreshed room
// and booking lists when a conflict was resolved along the way.
func (d *desk) printResolved(res app.Result) error {
	if res.Disposal == app.DisposalNone {
		return d.print(res)
	}
	return d.print(struct {
		app.Result
		Rooms    domain.Page[domain.Room]        `json:"rooms"`
		Bookings domain.Page[domain.BookingView] `json:"bookings"`
	}{res, d.dash.Rooms(), d.dash.Bookings()})
}

func cmdBookings(ctx context.Context, d *desk, args []string) error {
	fs := newFlags("bookings")
	pg := pageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	page, err := d.api.ListBookings(ctx, *pg)
	if err != nil {
		return err
	}
	return d.print(page)
}

func cmdBooking(ctx context.Context, d *desk, args []string) error {
	fs := newFlags("booking")
	id := fs.String("id", "", "booking id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(*id); err != nil {
		return err
	}
	b, err := d.api.GetBooking(ctx, *id)
	if err != nil {
		return err
	}
	return d.print(b)
}

func cmdBook(ctx context.Context, d *desk, args []string) error {
	fs := newFlags("book")
	var in domain.NewBooking
	fs.StringVar(&in.RoomID, "room", "", "room id")
	fs.StringVar(&in.GuestName, "guest", "", "guest name")
	fs.IntVar(&in.Nights, "nights", 1, "planned nights")
	if err := fs.Parse(args); err != nil {
		return err
	}
	b, err := d.api.CreateBooking(ctx, in)
	if err != nil {
		return err
	}
	return d.print(b)
}

func cmdBookingUpdate(ctx context.Context, d *desk, args []string) error {
	fs := newFlags("booking-update")
	id := fs.String("id", "", "booking id")
	guest := fs.String("guest", "", "guest name")
	nights := fs.Int("nights", 0, "planned nights")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(*id); err != nil {
		return err
	}
	set := flagsSet(fs)
	var p domain.BookingPatch
	if set["guest"] {
		p.GuestName = guest
	}
	if set["nights"] {
		p.Nights = nights
	}
	b, err := d.api.UpdateBooking(ctx, *id, p)
	if err != nil {
		return err
	}
	return d.print(b)
}

func cmdBookingDelete(ctx context.Context, d *desk, args []string) error {
	fs := newFlags("booking-delete")
	id := fs.String("id", "", "booking id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(*id); err != nil {
		return err
	}
	if err := d.api.DeleteBooking(ctx, *id); err != nil {
		return err
	}
	return d.print(map[string]any{"deleted": true, "bookingId": *id})
}

func cmdCheckout(ctx context.Context, d *desk, args []string) error {
	fs := newFlags("checkout")
	id := fs.String("id", "", "booking id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(*id); err != nil {
		return err
	}
	rec, err := d.api.CheckoutBooking(ctx, *id)
	if err != nil {
		return err
	}
	return d.print(rec)
}

func cmdHistory(ctx context.Context, d *desk, args []string) error {
	fs := newFlags("history")
	pg := pageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	page, err := d.api.ListHistory(ctx, *pg)
	if err != nil {
		return err
	}
	return d.print(page)
}

// cmdSeed creates every room listed in a JSON file, a bounded number at a
// time. Failures are logged per room and counted.
func cmdSeed(ctx context.Context, d *desk, args []string) error {
	fs := newFlags("seed")
	file := fs.String("file", "", "JSON array of rooms")
	workers := fs.Int("workers", 4, "concurrent create requests")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(*file); err != nil {
		return err
	}
	raw, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	var rooms []domain.RoomFields
	if err := json.Unmarshal(raw, &rooms); err != nil {
		return fmt.Errorf("parse %s: %w", *file, err)
	}
	if *workers < 1 {
		*workers = 1
	}

	sem := semaphore.NewWeighted(int64(*workers))
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created []domain.Room
		failed  int
	)
	for i, f := range rooms {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, f domain.RoomFields) {
			defer sem.Release(1)
			defer wg.Done()
			room, err := d.api.CreateRoom(ctx, f)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				log.Error().Err(err).Int("index", i).Msg("seed room failed")
				return
			}
			created = append(created, room)
		}(i, f)
	}
	wg.Wait()
	log.Info().Int("created", len(created)).Int("failed", failed).Msg("seeding completed")

	if err := d.print(created); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d rooms failed", failed, len(rooms))
	}
	return ctx.Err()
}

// cmdWatch keeps the room and booking lists current from the change channel
// and prints them on every refresh.
func cmdWatch(ctx context.Context, d *desk, args []string) error {
	fs := newFlags("watch")
	pg := pageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if d.cfg.RedisAddr == "" {
		return errors.New("watch needs REDIS_ADDR")
	}
	d.dash.SetBookingPage(*pg)
	d.dash.SetRoomQuery(domain.RoomFilter{}, *pg)

	reg := observability.InitRegistry()
	observability.Serve(d.cfg.MetricsAddr, reg)

	rc := redisad.NewClient(d.cfg.RedisAddr, d.cfg.RedisPass, d.cfg.RedisDB)
	defer rc.Close()
	sub := redisad.NewSubscriber(rc, d.cfg.EventsChannel)

	refreshed := make(chan domain.Event, 16)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ready := make(chan struct{})
		go func() {
			select {
			case <-ready:
				log.Info().Str("channel", d.cfg.EventsChannel).Msg("watching changes")
			case <-gctx.Done():
			}
		}()
		return sub.Run(gctx, ready, func(ctx context.Context, e domain.Event) {
			observability.ObserveChange(ctx, e)
			if e.Entity == domain.EntityHistory {
				return
			}
			d.dash.Handle(ctx, e)
			select {
			case refreshed <- e:
			default:
			}
		})
	})
	g.Go(func() error {
		if err := d.dash.Refresh(gctx); err != nil {
			return err
		}
		if err := d.printDashboard(""); err != nil {
			return err
		}
		for {
			select {
			case <-gctx.Done():
				return nil
			case e := <-refreshed:
				if err := d.printDashboard(e.Name()); err != nil {
					return err
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (d *desk) printDashboard(cause string) error {
	return d.print(struct {
		Cause    string                          `json:"cause,omitempty"`
		Rooms    domain.Page[domain.Room]        `json:"rooms"`
		Bookings domain.Page[domain.BookingView] `json:"bookings"`
	}{cause, d.dash.Rooms(), d.dash.Bookings()})
}
