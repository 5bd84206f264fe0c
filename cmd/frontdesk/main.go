// Command frontdesk is the desk-side client: it manages rooms and bookings
// through the API and walks the operator through booking conflicts.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"frontdesk/internal/adapters/hotelapi"
	"frontdesk/internal/adapters/observability"
	"frontdesk/internal/app"
	"frontdesk/internal/events"
	"frontdesk/internal/shared"
)

// exit codes
const (
	exitOK             = 0
	exitFailed         = 1
	exitUsage          = 2
	exitRequiresAction = 3
)

type desk struct {
	api      *hotelapi.Client
	bus      *events.Bus
	resolver *app.Resolver
	dash     *app.Dashboard
	cfg      shared.Config
	out      io.Writer
}

type command struct {
	usage string
	run   func(ctx context.Context, d *desk, args []string) error
}

var commands = map[string]command{
	"rooms":          {"rooms [-type t] [-available b] [-min-beds n] [-max-price p] [-page n] [-limit n]", cmdRooms},
	"room":           {"room -id ID", cmdRoom},
	"room-add":       {"room-add -no N -type t -beds n -price p [-desc text]", cmdRoomAdd},
	"room-update":    {"room-update -id ID [-no N] [-type t] [-beds n] [-price p] [-desc text] [-dispose checkout|delete]", cmdRoomUpdate},
	"room-delete":    {"room-delete -id ID [-dispose checkout|delete]", cmdRoomDelete},
	"bookings":       {"bookings [-page n] [-limit n]", cmdBookings},
	"booking":        {"booking -id ID", cmdBooking},
	"book":           {"book -room ID -guest name -nights n", cmdBook},
	"booking-update": {"booking-update -id ID [-guest name] [-nights n]", cmdBookingUpdate},
	"booking-delete": {"booking-delete -id ID", cmdBookingDelete},
	"checkout":       {"checkout -id ID", cmdCheckout},
	"history":        {"history [-page n] [-limit n]", cmdHistory},
	"seed":           {"seed -file rooms.json [-workers n]", cmdSeed},
	"watch":          {"watch", cmdWatch},
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "usage: frontdesk <command> [flags]")
	for _, n := range names {
		fmt.Fprintln(w, "  "+commands[n].usage)
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, "frontdesk", cfg.LogLevel, os.Stderr)

	if len(args) == 0 {
		usage(os.Stderr)
		return exitUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		usage(os.Stderr)
		return exitUsage
	}

	api, err := hotelapi.New(hotelapi.Config{
		BaseURL:     cfg.APIBase,
		RPS:         cfg.APIRPS,
		ReadRetries: cfg.APIRetries,
		Timeout:     cfg.APITimeout,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize API client")
		return exitFailed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := &desk{api: api, bus: events.NewBus(), cfg: cfg, out: os.Stdout}
	d.dash = app.NewDashboard(api, api)
	d.resolver = app.NewResolver(api, api, d.bus)
	d.resolver.OnOutcome(func(o app.Outcome) {
		observability.ObserveConflict(string(o.Action), string(o.Disposal), o.Result)
	})
	d.bus.Subscribe(d.dash.Handle)
	d.bus.Subscribe(observability.ObserveChange)

	err = cmd.run(ctx, d, args[1:])
	var ra *requiresAction
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ra):
		return exitRequiresAction
	case errors.Is(err, flag.ErrHelp):
		return exitUsage
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, "usage: frontdesk "+cmd.usage)
		return exitUsage
	}
	log.Error().Err(err).Str("command", args[0]).Msg("command failed")
	return exitFailed
}

var errUsage = errors.New("usage")

// requiresAction reports a conflict left open for the operator to decide.
type requiresAction struct{ dialog app.Dialog }

func (e *requiresAction) Error() string {
	return fmt.Sprintf("room %s has active booking %s; rerun with -dispose checkout|delete", e.dialog.RoomID, e.dialog.BookingID)
}

func (d *desk) print(v any) error {
	enc := json.NewEncoder(d.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func required(vals ...string) error {
	for _, v := range vals {
		if strings.TrimSpace(v) == "" {
			return errUsage
		}
	}
	return nil
}
