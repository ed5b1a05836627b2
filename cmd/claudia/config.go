package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/brewer-michael/claudia-web/pkg/projectstore"
)

// storeConfig selects the local project store backend.
type storeConfig struct {
	Driver string `yaml:"driver,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
}

// cliConfig holds all CLI configuration options.
type cliConfig struct {
	ServerURL string      `yaml:"server_url,omitempty"`
	Store     storeConfig `yaml:"store"`
}

// defaultConfig returns the default configuration.
func defaultConfig() *cliConfig {
	return &cliConfig{
		ServerURL: "http://localhost:8080",
		Store: storeConfig{
			Driver: "sqlite",
			DSN:    defaultStorePath(),
		},
	}
}

func defaultStorePath() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "claudia", "projects.db")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "claudia", "projects.db")
}

// configPath returns the path to the config file.
func configPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "claudia", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "claudia", "config.yaml")
}

// loadConfig loads config from file, falling back to defaults.
func loadConfig() *cliConfig {
	cfg := defaultConfig()

	data, err := os.ReadFile(configPath())
	if err != nil {
		return cfg
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return defaultConfig()
	}

	return cfg
}

// openStore opens the configured local project store, creating the
// sqlite database directory on first use.
func openStore(cfg *cliConfig) (projectstore.Store, error) {
	if cfg.Store.Driver == "" || cfg.Store.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.DSN), 0o755); err != nil {
			return nil, err
		}
	}
	return projectstore.Open(projectstore.Config{
		Driver: cfg.Store.Driver,
		DSN:    cfg.Store.DSN,
	})
}
