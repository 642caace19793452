// Package config loads gateway configuration from the environment.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	EnvRedisURL     = "REDIS_URL"
	EnvHost         = "HOST"
	EnvPort         = "PORT"
	EnvLogLevel     = "LOG_LEVEL"
	EnvOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Defaults applied when a variable is unset.
const (
	DefaultRedisURL = "redis://127.0.0.1:6379"
	DefaultHost     = "0.0.0.0"
	DefaultPort     = 3001
	DefaultLogLevel = "info"
)

// Config holds the resolved gateway configuration.
type Config struct {
	RedisURL     string
	Host         string
	Port         uint16
	LogLevel     string
	OTLPEndpoint string
}

// FromEnv reads configuration from the environment, applying defaults.
// An unparseable PORT is a startup failure.
func FromEnv() (Config, error) {
	cfg := Config{
		RedisURL:     envOrDefault(EnvRedisURL, DefaultRedisURL),
		Host:         envOrDefault(EnvHost, DefaultHost),
		Port:         DefaultPort,
		LogLevel:     strings.ToLower(envOrDefault(EnvLogLevel, DefaultLogLevel)),
		OTLPEndpoint: strings.TrimSpace(os.Getenv(EnvOTLPEndpoint)),
	}

	if raw := strings.TrimSpace(os.Getenv(EnvPort)); raw != "" {
		port, err := strconv.ParseUint(raw, 10, 16)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", EnvPort, raw, err)
		}
		cfg.Port = uint16(port)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the resolved configuration for internally inconsistent values.
func (c Config) Validate() error {
	if strings.TrimSpace(c.RedisURL) == "" {
		return fmt.Errorf("%s must not be empty", EnvRedisURL)
	}
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("%s must not be empty", EnvHost)
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid %s %q", EnvLogLevel, c.LogLevel)
	}
	return nil
}

// ListenAddr returns the host:port bind address for the HTTP server.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(int(c.Port)))
}

func envOrDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
