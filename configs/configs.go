// Package configs provides application configuration loaded from environment variables.
// All configuration is externalized via environment variables for 12-factor app compliance.
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all application configuration.
// Load it once at startup using AppLoad().
type AppConfig struct {
	// DBDSN is the Postgres connection string.
	DBDSN string

	// ServerPort is the port the API server listens on.
	ServerPort string

	// Venue contains settings for the Bybit REST client.
	Venue VenueConfig

	// Advisory contains settings for the external advisory endpoint.
	Advisory AdvisoryConfig

	// Sync contains settings for candle synchronization and indicator jobs.
	Sync SyncConfig

	// Stream contains settings for the websocket position stream.
	Stream StreamConfig
}

// VenueConfig holds Bybit REST client settings.
type VenueConfig struct {
	// BaseURL is the venue API root (testnet or mainnet).
	BaseURL string

	APIKey    string
	APISecret string

	// RequestsPerSecond bounds outbound API calls.
	RequestsPerSecond float64

	// RequestTimeout bounds one HTTP call.
	RequestTimeout time.Duration
}

// AdvisoryConfig holds settings for the external decision source.
type AdvisoryConfig struct {
	// URL is the endpoint a snapshot is posted to for a decision.
	URL string

	// Timeout bounds one advisory call; advisors can be slow.
	Timeout time.Duration
}

// SyncConfig holds background job settings.
type SyncConfig struct {
	// Symbols are the tracked trading pairs.
	Symbols []string

	// Interval is the venue kline interval code ("240" = 4h).
	Interval string

	// WindowSize is the maximum candles retained per (symbol, interval).
	WindowSize int

	// InitialFetchLimit is the candle count fetched on first sync.
	InitialFetchLimit int

	// SyncEvery is the cadence of sync + indicator compute jobs.
	SyncEvery time.Duration

	// ExpireEvery is the cadence of the strategy expiry sweep.
	ExpireEvery time.Duration

	// StrategyValidity is how long a proposed strategy stays actionable.
	StrategyValidity time.Duration
}

// StreamConfig holds websocket streaming settings.
type StreamConfig struct {
	// PushEvery is the interval between position pushes to a client.
	PushEvery time.Duration

	// FetchTimeout is the deadline for one aggregate position fetch.
	FetchTimeout time.Duration
}

// getDatabaseDSN constructs the Postgres DSN from environment variables.
func getDatabaseDSN() string {
	dbUser := getEnv("POSTGRES_USER", "compass")
	dbPassword := getEnv("POSTGRES_PASSWORD", "compass")
	dbHost := getEnv("POSTGRES_HOST", "localhost")
	dbPort := getEnv("POSTGRES_PORT", "5432")
	dbName := getEnv("POSTGRES_DB", "compass")
	sslMode := getEnv("POSTGRES_SSLMODE", "disable")

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbHost, dbPort, dbUser, dbPassword, dbName, sslMode,
	)
}

// AppLoad loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development).
// Call this once at application startup.
func AppLoad() *AppConfig {
	_ = godotenv.Load() // Ignore error - .env is optional

	return &AppConfig{
		DBDSN:      getDatabaseDSN(),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		Venue: VenueConfig{
			BaseURL:           getEnv("BYBIT_BASE_URL", "https://api.bybit.com"),
			APIKey:            getEnv("BYBIT_API_KEY", ""),
			APISecret:         getEnv("BYBIT_API_SECRET", ""),
			RequestsPerSecond: getEnvFloat("BYBIT_REQUESTS_PER_SECOND", 5),
			RequestTimeout:    getEnvDuration("BYBIT_REQUEST_TIMEOUT", 10*time.Second),
		},
		Advisory: AdvisoryConfig{
			URL:     getEnv("ADVISORY_URL", "http://localhost:9090"),
			Timeout: getEnvDuration("ADVISORY_TIMEOUT", 60*time.Second),
		},
		Sync: SyncConfig{
			Symbols:           getEnvList("SYNC_SYMBOLS", "BTCUSDT,ETHUSDT,BNBUSDT"),
			Interval:          getEnv("SYNC_INTERVAL_CODE", "240"),
			WindowSize:        getEnvInt("CANDLE_WINDOW_SIZE", 1000),
			InitialFetchLimit: getEnvInt("CANDLE_INITIAL_FETCH", 1000),
			SyncEvery:         getEnvDuration("SYNC_EVERY", 10*time.Minute),
			ExpireEvery:       getEnvDuration("EXPIRE_EVERY", 10*time.Minute),
			StrategyValidity:  getEnvDuration("STRATEGY_VALIDITY", time.Hour),
		},
		Stream: StreamConfig{
			PushEvery:    getEnvDuration("STREAM_PUSH_EVERY", 5*time.Second),
			FetchTimeout: getEnvDuration("STREAM_FETCH_TIMEOUT", 10*time.Second),
		},
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvFloat returns the environment variable as float64 or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDuration returns the environment variable as a duration or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvList returns a comma-separated environment variable as a slice.
func getEnvList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
