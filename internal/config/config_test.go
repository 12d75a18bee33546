package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "REDIS_ADDR", "REDIS_DB", "JOURNAL_QUEUE_NAME", "JOURNAL_ENABLED",
		"STEP_DELAY_SCALE", "LOCAL_SEAT", "TOKEN_EXPIRE_TIME",
		"HISTORIAN_BATCH_SIZE", "HISTORIAN_FLUSH_MS", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "tabletop_steps", cfg.JournalQueue)
	assert.False(t, cfg.JournalEnabled)
	assert.Equal(t, 1.0, cfg.DelayScale)
	assert.Equal(t, 0, cfg.LocalSeat)
	assert.Equal(t, 24*time.Hour, cfg.TokenExpiry)
	assert.Equal(t, 20, cfg.HistorianBatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.HistorianFlush)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("JOURNAL_ENABLED", "true")
	t.Setenv("STEP_DELAY_SCALE", "0")
	t.Setenv("LOCAL_SEAT", "2")
	t.Setenv("TOKEN_EXPIRE_TIME", "60")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := Load()
	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.JournalEnabled)
	assert.Equal(t, 0.0, cfg.DelayScale)
	assert.Equal(t, 2, cfg.LocalSeat)
	assert.Equal(t, time.Minute, cfg.TokenExpiry)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadIgnoresMalformed(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_DB", "two")
	t.Setenv("STEP_DELAY_SCALE", "-1")
	t.Setenv("JOURNAL_ENABLED", "maybe")

	cfg := Load()
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 1.0, cfg.DelayScale)
	assert.False(t, cfg.JournalEnabled)
}
