// Package config reads the server's environment configuration once at
// startup.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port           string // PORT, default 8080
	DatabaseURL    string // DATABASE_URL, required
	ExpectedSecret string // EXPECTED_SECRET, required
	GitHubToken    string // GITHUB_TOKEN, optional: without it provisioning is skipped
	Workers        int    // WORKERS, default 4
	QueueSize      int    // QUEUE_SIZE, default 64
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getenv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ExpectedSecret: os.Getenv("EXPECTED_SECRET"),
		GitHubToken:    os.Getenv("GITHUB_TOKEN"),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ExpectedSecret == "" {
		return nil, fmt.Errorf("EXPECTED_SECRET is required")
	}

	var err error
	if cfg.Workers, err = getenvInt("WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.QueueSize, err = getenvInt("QUEUE_SIZE", 64); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s: expected a positive integer, got %q", key, v)
	}
	return n, nil
}
