package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// Environment
	Environment string

	// Server
	Port        string
	StaticDir   string
	ImageDir    string
	CORSOrigins []string

	// Table
	TickRate         int
	StreamIntervalMS int
	SessionSeed      uint64
	TelemetryKeep    int
	ShutdownTimeout  time.Duration
	NetworkProfile   string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	// .env необязателен
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("APP_ENV", "development"),

		Port:        getEnv("APP_PORT", "8080"),
		StaticDir:   getEnv("STATIC_DIR", "./static"),
		ImageDir:    getEnv("IMAGE_DIR", "./static/money_images"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),

		TickRate:         getEnvInt("TICK_RATE", 60),
		StreamIntervalMS: getEnvInt("STREAM_INTERVAL_MS", 50),
		SessionSeed:      getEnvUint("SESSION_SEED", 0),
		TelemetryKeep:    getEnvInt("TELEMETRY_KEEP_SESSIONS", 16),
		ShutdownTimeout:  time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
		NetworkProfile:   getEnv("NETWORK_PROFILE", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// StreamInterval - период пакетной отправки трансформов
func (c *Config) StreamInterval() time.Duration {
	if c.StreamIntervalMS <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(c.StreamIntervalMS) * time.Millisecond
}

// NewLogger создает корневой логгер по уровню и формату из конфигурации
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("level", c.LogLevel).Warn("[Config] Неизвестный уровень логирования, используем info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseUint(value, 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
