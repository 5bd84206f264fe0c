package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	HTTPTimeout time.Duration
	MetricsAddr string
	Store       string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration
	// EventsChannel is the Redis pub/sub channel for change events.
	EventsChannel string

	APIBase    string
	APIRPS     int
	APIRetries int
	APITimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory, if present, fills in variables that are not already set.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg(".env not loaded")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer setting")
		}
		return def
	}
	c := Config{
		AppEnv:        env("APP_ENV", "prod"),
		LogLevel:      env("LOG_LEVEL", "info"),
		HTTPAddr:      env("HTTP_ADDR", ":8080"),
		HTTPTimeout:   time.Duration(atoi("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
		MetricsAddr:   env("METRICS_ADDR", ""),
		Store:         env("STORE", StoreMySQL),
		MySQLDSN:      env("MYSQL_DSN", "root:root@tcp(localhost:3306)/frontdesk?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisPass:     env("REDIS_PASSWORD", ""),
		RedisDB:       atoi("REDIS_DB", 0),
		CacheTTL:      time.Duration(atoi("CACHE_TTL_SECONDS", 60)) * time.Second,
		EventsChannel: env("EVENTS_CHANNEL", "frontdesk.changes"),
		APIBase:       env("FRONTDESK_API_BASE", "http://localhost:8080/api"),
		APIRPS:        atoi("FRONTDESK_RPS", 10),
		APIRetries:    atoi("FRONTDESK_READ_RETRIES", 0),
		APITimeout:    time.Duration(atoi("FRONTDESK_TIMEOUT_SECONDS", 20)) * time.Second,
	}
	if c.Store != StoreMySQL && c.Store != StoreMemory {
		log.Warn().Str("store", c.Store).Msg("unknown STORE, using memory")
		c.Store = StoreMemory
	}
	if c.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR is empty; read cache and change fan-out disabled")
	}
	return c
}

func env(k, def string) string {
	if v, ok := os.LookupEnv(k); ok {
		return v
	}
	return def
}
