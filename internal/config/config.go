package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Redis (ephemeral recipient queues + batch locks)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Mail transport
	ResendAPIKey string
	FromAddress  string

	// Dispatch
	BatchSize     int           // recipients per processBatch invocation
	BatchInterval time.Duration // recurring trigger interval per sending campaign
	QueueTTL      time.Duration // safety net against orphaned recipient queues
	BatchLockTTL  time.Duration // per-campaign batch lock expiry
	SendRate      int           // mail sends per second within a batch

	// Tracking
	TrackingBaseURL string        // absolute base for pixel/click URLs
	HomeURL         string        // safe redirect target for invalid click URLs
	DedupWindow     time.Duration // identical events inside this window collapse
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		FromAddress:  getEnv("FROM_ADDRESS", "Lettercast <newsletter@lettercast.dev>"),

		BatchSize:     getInt("BATCH_SIZE", 50),
		BatchInterval: getDuration("BATCH_INTERVAL", 5*time.Minute),
		QueueTTL:      getDuration("QUEUE_TTL", 24*time.Hour),
		BatchLockTTL:  getDuration("BATCH_LOCK_TTL", 4*time.Minute),
		SendRate:      getInt("SEND_RATE_PER_SEC", 20),

		TrackingBaseURL: getEnv("TRACKING_BASE_URL", "http://localhost:8080"),
		HomeURL:         getEnv("HOME_URL", "https://lettercast.dev"),
		DedupWindow:     getDuration("TRACKING_DEDUP_WINDOW", 5*time.Minute),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
