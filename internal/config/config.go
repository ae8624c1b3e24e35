// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the API process needs to start.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string

	// PostgresDSN selects the Postgres store; empty falls back to the
	// in-memory store (development and tests only).
	PostgresDSN string

	// AuthSecret signs access tokens. Required outside of tests.
	AuthSecret string

	// AccessTTL bounds token lifetime.
	AccessTTL time.Duration

	// RateBurst and RatePerSec tune the per-IP limiter.
	RateBurst  int
	RatePerSec int
}

// Load reads the environment, after merging a .env file when present. A
// missing .env is not an error; a malformed one is.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Addr:        getEnv("VHUB_ADDR", ":8080"),
		PostgresDSN: os.Getenv("VHUB_PG_DSN"),
		AuthSecret:  os.Getenv("VHUB_AUTH_SECRET"),
		AccessTTL:   15 * time.Minute,
		RateBurst:   20,
		RatePerSec:  10,
	}

	if raw := os.Getenv("VHUB_ACCESS_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return Config{}, fmt.Errorf("invalid VHUB_ACCESS_TTL %q", raw)
		}
		cfg.AccessTTL = ttl
	}
	var err error
	if cfg.RateBurst, err = getEnvInt("VHUB_RATE_BURST", cfg.RateBurst); err != nil {
		return Config{}, err
	}
	if cfg.RatePerSec, err = getEnvInt("VHUB_RATE_PER_SEC", cfg.RatePerSec); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}
