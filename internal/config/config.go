// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/tabletop/internal/cache"
)

// Config is the environment-driven service configuration. Every field has a
// default so a bare environment still boots.
type Config struct {
	Port string

	RedisAddr      string
	RedisDB        int
	JournalQueue   string
	JournalEnabled bool

	// DelayScale multiplies every step delay; 0 plays sequences instantly.
	DelayScale float64
	// LocalSeat is the seat the table renders face up and nearest the viewer.
	LocalSeat int

	TokenExpiry time.Duration

	HistorianBatchSize int
	HistorianFlush     time.Duration

	LogLevel string
}

// Load reads the configuration from the process environment.
func Load() Config {
	return Config{
		Port:               getEnv("PORT", "8080"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		JournalQueue:       getEnv("JOURNAL_QUEUE_NAME", cache.DefaultQueueName),
		JournalEnabled:     getEnvBool("JOURNAL_ENABLED", false),
		DelayScale:         getEnvFloat("STEP_DELAY_SCALE", 1),
		LocalSeat:          getEnvInt("LOCAL_SEAT", 0),
		TokenExpiry:        time.Duration(getEnvInt("TOKEN_EXPIRE_TIME", 86400)) * time.Second,
		HistorianBatchSize: getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlush:     time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
