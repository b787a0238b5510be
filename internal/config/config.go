package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration from environment variables.
// It is built once at startup and never mutated afterwards.
type Config struct {
	Port        int
	DBPath      string
	GTFSDir     string
	GTFSURL     string
	FaresDir    string
	AlertsURL   string
	Timezone    string
	LogLevel    slog.Level
	ImportGTFS  bool // CLI flag: force GTFS re-import
	ImportFares bool // CLI flag: import fare tables, then exit

	NominatimURL     string
	GeocodeUserAgent string
	CacheTTL         time.Duration
	RedisAddr        string // empty = in-process cache
	RedisPassword    string
	RedisDB          int

	SnapRadiusMeters  float64 // max distance from a geocoded point to its snapped stop
	DirectionalRoutes bool    // require origin to precede destination on a trip
	PathDistance      bool    // sum distance over intermediate stops
	FareConcurrency   int     // max parallel fare computations per search
	CompletionPoints  int     // points awarded when a trip completes

	JWTSecret   string
	CORSOrigins []string

	NATSURL        string // empty disables trip events
	MetricsEnabled bool
}

// Load reads configuration from environment variables with defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      envInt("KOMYUT_PORT", 8080),
		DBPath:    envStr("KOMYUT_DB_PATH", "./komyut.db"),
		GTFSDir:   envStr("KOMYUT_GTFS_DIR", "./data"),
		GTFSURL:   envStr("KOMYUT_GTFS_URL", "https://data.sakay.ph/gtfs.zip"),
		FaresDir:  envStr("KOMYUT_FARES_DIR", "./data/fares"),
		AlertsURL: envStr("KOMYUT_ALERTS_URL", ""),
		Timezone:  envStr("KOMYUT_TIMEZONE", "Asia/Manila"),
		LogLevel:  envLevel("KOMYUT_LOG_LEVEL", slog.LevelInfo),

		NominatimURL:     envStr("KOMYUT_NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		GeocodeUserAgent: envStr("KOMYUT_GEOCODE_USER_AGENT", "komyut/1.0 (commuter assistant)"),
		CacheTTL:         envDuration("KOMYUT_CACHE_TTL", 24*time.Hour),
		RedisAddr:        envStr("KOMYUT_REDIS_ADDR", ""),
		RedisPassword:    envStr("KOMYUT_REDIS_PASSWORD", ""),
		RedisDB:          envInt("KOMYUT_REDIS_DB", 0),

		SnapRadiusMeters:  envFloat("KOMYUT_SNAP_RADIUS_M", 1000),
		DirectionalRoutes: envBool("KOMYUT_DIRECTIONAL_ROUTES", false),
		PathDistance:      envBool("KOMYUT_PATH_DISTANCE", false),
		FareConcurrency:   envInt("KOMYUT_FARE_CONCURRENCY", 8),
		CompletionPoints:  envInt("KOMYUT_COMPLETION_POINTS", 10),

		JWTSecret:   envStr("KOMYUT_JWT_SECRET", ""),
		CORSOrigins: envCSV("KOMYUT_CORS_ORIGINS", []string{"*"}),

		NATSURL:        envStr("KOMYUT_NATS_URL", ""),
		MetricsEnabled: envBool("KOMYUT_METRICS_ENABLED", true),
	}
}

// Location returns the configured service time zone, falling back to a fixed
// UTC+8 zone when the tz database is unavailable.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.FixedZone("PHT", 8*60*60)
	}
	return loc
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	switch strings.ToLower(os.Getenv(key)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

func envCSV(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
