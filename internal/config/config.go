// Package config provides runtime configuration for the storefront service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every knob the service needs. It is built once in main and
// passed by reference to the components that use it; there is no package-level
// settings state.
type Config struct {
	HTTPAddr           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	DBHost            string
	DBPort            int
	DBUser            string
	DBPassword        string
	DBName            string
	MigrationsDirPath string

	// RedisAddr enables the product cache when non-empty.
	RedisAddr string

	// KafkaBrokers enables the order-event outbox publisher when non-empty.
	KafkaBrokers []string
	KafkaTopic   string
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// Load collects configuration from the environment with defaults.
func Load() *Config {
	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return &Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,
		ShutdownTimeout:    time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,
		MaxRequestBodySize: 1 << 20, // 1MB

		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnvInt("DB_PORT", 5432),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "storefront"),
		MigrationsDirPath: getEnv("MIGRATIONS_DIR", "./internal/repository/migrations"),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		KafkaBrokers: brokers,
		KafkaTopic:   getEnv("KAFKA_TOPIC", "order-events"),
	}
}
