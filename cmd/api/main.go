package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "frontdesk/internal/adapters/http_server"
	"frontdesk/internal/adapters/observability"
	redisad "frontdesk/internal/adapters/redis"
	"frontdesk/internal/app"
	"frontdesk/internal/domain"
	"frontdesk/internal/events"
	"frontdesk/internal/shared"
	"frontdesk/internal/storage/memory"
	mysqlrepo "frontdesk/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api", cfg.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	// change events: local cache invalidation + metrics, then fan-out over redis
	bus := events.NewBus()
	pub := events.Multi{bus}

	var reads *app.ReadCache
	if cfg.RedisAddr != "" {
		rc := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; running without cache")
		} else {
			reads = app.NewReadCache(redisad.NewCache(rc), cfg.CacheTTL)
			pub = append(pub, redisad.NewPublisher(rc, cfg.EventsChannel))
			log.Info().Str("addr", cfg.RedisAddr).Str("channel", cfg.EventsChannel).Msg("redis cache and change fan-out enabled")
		}
	}
	bus.Subscribe(app.NewCacheInvalidator(reads).Handle)
	bus.Subscribe(observability.ObserveChange)

	rooms := app.NewRoomRegistry(store, pub, reads)
	bookings := app.NewBookingLedger(store, domain.SystemClock{}, pub, reads)
	history := app.NewHistoryService(store, reads)

	// http
	srv := server.New(cfg.HTTPTimeout)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Rooms: rooms, Bookings: bookings, History: history})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.Store).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		log.Fatal().Err(err).Msg("http server failed")
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func openStore(ctx context.Context, cfg shared.Config) (domain.Store, func()) {
	if cfg.Store == shared.StoreMemory {
		log.Warn().Msg("using in-memory store; data is lost on exit")
		return memory.New(), func() {}
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)
	log.Info().Msg("database connection ok")
	return mysqlrepo.New(db), func() { _ = db.Close() }
}
