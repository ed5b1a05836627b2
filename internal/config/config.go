// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all server configuration.
type Config struct {
	// Server
	ListenAddr  string
	MetricsAddr string // empty disables the metrics listener

	// Logging
	LogLevel  string
	LogFormat string

	// Workspace root served to clients
	WorkspaceDir string

	// Command execution
	ExecTimeout time.Duration

	// Largest file the read and write endpoints accept
	MaxFileSize int64

	// Filesystem change watching
	Watch bool
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:   envOr("LISTEN_ADDR", ":8080"),
		MetricsAddr:  ":9090",
		LogLevel:     envOr("LOG_LEVEL", "info"),
		LogFormat:    envOr("LOG_FORMAT", "json"),
		WorkspaceDir: envOr("WORKSPACE_DIR", ""),
		ExecTimeout:  envDuration("EXEC_TIMEOUT", 30*time.Second),
		MaxFileSize:  envInt64("MAX_FILE_SIZE", 10*1024*1024), // 10MB default
		Watch:        envBool("WATCH", true),
	}

	// Setting METRICS_ADDR to the empty string disables the metrics
	// listener, so this key distinguishes unset from empty.
	if v, ok := os.LookupEnv("METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}

	if cfg.WorkspaceDir == "" {
		return nil, fmt.Errorf("WORKSPACE_DIR is required")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
