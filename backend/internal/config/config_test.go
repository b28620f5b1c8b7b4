package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_PORT", "TICK_RATE", "STREAM_INTERVAL_MS", "SESSION_SEED", "LOG_LEVEL", "LOG_FORMAT", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 60, cfg.TickRate)
	assert.Equal(t, 50*time.Millisecond, cfg.StreamInterval())
	assert.Zero(t, cfg.SessionSeed)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Len(t, cfg.CORSOrigins, 2)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("TICK_RATE", "120")
	t.Setenv("STREAM_INTERVAL_MS", "20")
	t.Setenv("SESSION_SEED", "12345")
	t.Setenv("CORS_ORIGINS", " http://a.test , ,http://b.test")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("NETWORK_PROFILE", "wifi_poor")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 120, cfg.TickRate)
	assert.Equal(t, 20*time.Millisecond, cfg.StreamInterval())
	assert.Equal(t, uint64(12345), cfg.SessionSeed)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, "wifi_poor", cfg.NetworkProfile)

	log := cfg.NewLogger()
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("TICK_RATE", "fast")
	t.Setenv("SESSION_SEED", "-1")
	t.Setenv("LOG_LEVEL", "chatty")
	t.Setenv("STREAM_INTERVAL_MS", "0")

	cfg := Load()
	assert.Equal(t, 60, cfg.TickRate)
	assert.Zero(t, cfg.SessionSeed)
	assert.Equal(t, 50*time.Millisecond, cfg.StreamInterval())
	assert.Equal(t, logrus.InfoLevel, cfg.NewLogger().GetLevel())
}
