package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the configuration settings for the dashboard service.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - Port: The port of the dashboard API server.
// - MonitorPort: The port of the health and metrics server.
// - Geocoder: Geocoding provider settings.
// - Store: Which document store backs the shipments collection (memory, postgres).
// - Session: Anonymous session settings.
// - DashboardIdle: How long an unused dashboard is kept before it is closed.
// - ResyncInterval: Period of the full collection re-read.
// - AllowedOrigins: Extra browser origins allowed to open the live stream.
// - Database: Configuration settings for the PostgreSQL database.
type Config struct {
	Env            string         // Env is the current environment: local, development, production.
	Port           int            // Port is the API server port.
	MonitorPort    int            // MonitorPort serves /healthz and /metrics.
	Geocoder       GeocoderConfig // Geocoder selects and tunes the geocoding provider.
	Store          string         // Store is the document store backend.
	Session        SessionConfig  // Session holds token settings.
	DashboardIdle  time.Duration  // DashboardIdle is the idle TTL of a dashboard.
	ResyncInterval time.Duration  // ResyncInterval is the period of the full re-read.
	AllowedOrigins []string       // AllowedOrigins may open /api/stream besides the API host.
	Database       PostgresConfig // Database holds the postgres database configuration
}

// GeocoderConfig holds the geocoding provider settings.
type GeocoderConfig struct {
	Provider  string // Provider is one of google, nominatim, visicom.
	APIKey    string // APIKey is required by google and visicom.
	RateLimit int    // RateLimit is the number of requests per second.
	CachePath string // CachePath is the SQLite cache file, empty disables caching.
}

// SessionConfig holds the anonymous session settings.
type SessionConfig struct {
	Secret string        // Secret signs session tokens, a random one is generated when empty.
	TTL    time.Duration // TTL is the lifetime of an issued token.
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
}

// MustLoad reads the configuration from the environment (and an optional .env file)
// and returns a Config struct. It panics on values that cannot be parsed.
func MustLoad() *Config {
	_ = godotenv.Load()

	port, err := strconv.Atoi(setDefaultEnv("HERMES_PORT", "8080"))
	if err != nil {
		panic("failed to parse port for api server from configuration")
	}

	monitorPort, err := strconv.Atoi(setDefaultEnv("HERMES_MONITOR_PORT", "9090"))
	if err != nil {
		panic("failed to parse port for monitoring server from configuration")
	}

	rateLimit, err := strconv.Atoi(setDefaultEnv("HERMES_GEOCODER_RATE", "1"))
	if err != nil {
		panic("failed to parse geocoder rate from configuration, must be an integer types")
	}

	sessionTTL, err := time.ParseDuration(setDefaultEnv("HERMES_SESSION_TTL", "24h"))
	if err != nil {
		panic("failed to parse session ttl from configuration")
	}

	idle, err := time.ParseDuration(setDefaultEnv("HERMES_DASHBOARD_IDLE", "30m"))
	if err != nil {
		panic("failed to parse dashboard idle timeout from configuration")
	}

	resync, err := time.ParseDuration(setDefaultEnv("HERMES_RESYNC_INTERVAL", "5m"))
	if err != nil {
		panic("failed to parse resync interval from configuration")
	}

	return &Config{
		Env:         setDefaultEnv("HERMES_ENV", "production"),
		Port:        port,
		MonitorPort: monitorPort,
		Geocoder: GeocoderConfig{
			Provider:  setDefaultEnv("HERMES_GEOCODER", "nominatim"),
			APIKey:    os.Getenv("HERMES_GEOCODER_KEY"),
			RateLimit: rateLimit,
			CachePath: os.Getenv("HERMES_GEOCODE_CACHE"),
		},
		Store: setDefaultEnv("HERMES_STORE", "memory"),
		Session: SessionConfig{
			Secret: os.Getenv("HERMES_SESSION_SECRET"),
			TTL:    sessionTTL,
		},
		DashboardIdle:  idle,
		ResyncInterval: resync,
		AllowedOrigins: splitList(os.Getenv("HERMES_ALLOWED_ORIGINS")),
		Database: PostgresConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     setDefaultEnv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USERNAME"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
		},
	}
}

func setDefaultEnv(key, override string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = override
	}

	return value
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
