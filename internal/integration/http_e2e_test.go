//go:build integration || !unit

package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "frontdesk/internal/adapters/http_server"
	"frontdesk/internal/adapters/hotelapi"
	redisad "frontdesk/internal/adapters/redis"
	"frontdesk/internal/app"
	"frontdesk/internal/domain"
	"frontdesk/internal/events"
	mysqlrepo "frontdesk/internal/storage/mysql"
)

// ---------- helpers ----------
func pint(i int) *int           { return &i }
func pfloat(f float64) *float64 { return &f }

func ptype(t domain.RoomType) *domain.RoomType { return &t }

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = filepath.Join("..", "..", "migrations")
	}

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=frontdesk",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/frontdesk?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	pool.MaxWait = 2 * time.Minute
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

// stack is the API service as cmd/api wires it: MySQL store, redis read
// cache invalidated from the change bus, chi router.
func startAPI(t *testing.T, db *sql.DB) string {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redisad.NewClient(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = rc.Close() })

	reads := app.NewReadCache(redisad.NewCache(rc), time.Minute)
	bus := events.NewBus()
	bus.Subscribe(app.NewCacheInvalidator(reads).Handle)
	pub := events.Multi{bus, redisad.NewPublisher(rc, "frontdesk.changes")}

	store := mysqlrepo.New(db)
	srv := httpserver.New(5 * time.Second)
	srv.MountHandlers(&httpserver.Handlers{
		Rooms:    app.NewRoomRegistry(store, pub, reads),
		Bookings: app.NewBookingLedger(store, domain.SystemClock{}, pub, reads),
		History:  app.NewHistoryService(store, reads),
	})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts.URL + "/api"
}

// ---------- the test ----------
func TestHTTP_EndToEnd_DeleteBookedRoom(t *testing.T) {
	db := startMySQL(t)
	base := startAPI(t, db)
	ctx := context.Background()

	cl, err := hotelapi.New(hotelapi.Config{BaseURL: base, RPS: 50, Timeout: 10 * time.Second})
	require.NoError(t, err)

	deskBus := events.NewBus()
	dash := app.NewDashboard(cl, cl)
	deskBus.Subscribe(dash.Handle)
	resolver := app.NewResolver(cl, cl, deskBus)

	room, err := cl.CreateRoom(ctx, domain.RoomFields{
		RoomNo: pint(101), Type: ptype(domain.RoomDouble), Beds: pint(2), PricePerNight: pfloat(100),
	})
	require.NoError(t, err)
	assert.True(t, room.Available)

	b, err := cl.CreateBooking(ctx, domain.NewBooking{RoomID: room.ID, GuestName: "Alice", Nights: 2})
	require.NoError(t, err)
	assert.Equal(t, 200.0, b.TotalAmount)

	// the cached room page must reflect the booking
	avail := false
	page, err := cl.ListRooms(ctx, domain.RoomFilter{Available: &avail}, domain.PageQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, room.ID, page.Items[0].ID)

	_, err = cl.CreateBooking(ctx, domain.NewBooking{RoomID: room.ID, GuestName: "Bob", Nights: 1})
	assert.ErrorIs(t, err, domain.ErrRoomUnavailable)

	res, err := resolver.Attempt(ctx, app.Mutation{Action: app.ActionDelete, RoomID: room.ID})
	require.NoError(t, err)
	require.NotNil(t, res.Conflict)
	assert.Equal(t, b.ID, res.Conflict.BookingID)
	require.NotNil(t, res.Conflict.Booking)
	assert.Equal(t, "Alice", res.Conflict.Booking.GuestName)
	assert.Equal(t, app.ConflictMessage, res.Conflict.Message)

	require.NoError(t, resolver.Choose(app.DisposalCheckout))
	res, err = resolver.Confirm(ctx)
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	require.NotNil(t, res.Record)
	assert.Equal(t, 1, res.Record.ActualNightsStayed)
	assert.Equal(t, domain.StatusEarlyCheckout, res.Record.Status)
	assert.Equal(t, 100.0, res.Record.ActualTotalAmount)
	assert.Equal(t, app.StateDone, resolver.State())
	assert.Nil(t, resolver.Context())

	_, err = cl.GetRoom(ctx, room.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = cl.GetBooking(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// the desk views were refreshed by the resolution
	assert.Empty(t, dash.Rooms().Items)
	assert.Empty(t, dash.Bookings().Items)

	hist, err := cl.ListHistory(ctx, domain.PageQuery{})
	require.NoError(t, err)
	require.Len(t, hist.Items, 1)
	assert.Equal(t, b.ID, hist.Items[0].BookingID)
	assert.Equal(t, 101, hist.Items[0].RoomNo)
	assert.Equal(t, 100.0, hist.Analytics.TotalRevenue)
	assert.Equal(t, 1, hist.Analytics.TotalBookings)
	assert.Equal(t, 1.0, hist.Analytics.AverageStayDuration)
}

func TestHTTP_EndToEnd_UpdateWithDeleteDisposal(t *testing.T) {
	db := startMySQL(t)
	base := startAPI(t, db)
	ctx := context.Background()

	cl, err := hotelapi.New(hotelapi.Config{BaseURL: base, RPS: 50})
	require.NoError(t, err)
	resolver := app.NewResolver(cl, cl, nil)

	room, err := cl.CreateRoom(ctx, domain.RoomFields{
		RoomNo: pint(202), Type: ptype(domain.RoomSuite), Beds: pint(3), PricePerNight: pfloat(250),
	})
	require.NoError(t, err)
	b, err := cl.CreateBooking(ctx, domain.NewBooking{RoomID: room.ID, GuestName: "Carol", Nights: 3})
	require.NoError(t, err)

	res, err := resolver.Resolve(ctx, app.Mutation{
		Action: app.ActionUpdate, RoomID: room.ID, Fields: domain.RoomFields{PricePerNight: pfloat(300)},
	}, app.DisposalDelete)
	require.NoError(t, err)
	require.NotNil(t, res.Room)
	assert.Equal(t, 300.0, res.Room.PricePerNight)
	assert.True(t, res.Room.Available)
	assert.Nil(t, res.Record)

	_, err = cl.GetBooking(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// deletion leaves no history
	hist, err := cl.ListHistory(ctx, domain.PageQuery{})
	require.NoError(t, err)
	assert.Empty(t, hist.Items)
	assert.Equal(t, 0.0, hist.Analytics.AverageStayDuration)
}
