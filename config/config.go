// Package config loads scramble-server's runtime configuration: an
// optional config.json overlaid with environment variable overrides.
package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
)

// Config holds every environmental input the server accepts. Per spec, the
// board core itself only cares about a board file path and a bind
// endpoint; everything else here configures the adapters wrapped around
// it (HTTP/WS surface, auth, journal persistence).
type Config struct {
	BoardFile string `json:"board_file"`
	BindAddr  string `json:"bind_addr"`
	LogLevel  string `json:"log_level"`

	// DatabaseURL, if set, enables the flip/transform event journal.
	// Empty means the server runs without persistence.
	DatabaseURL string `json:"database_url"`

	// JWKSURL, if set, enables JWT-based actor identity resolution for
	// the HTTP and WebSocket adapters. Empty means actorId is taken
	// directly from the request (development mode).
	JWKSURL string `json:"jwks_url"`

	// WriteWaitMS, PongWaitMS and MaxMessageBytes are loaded but not read
	// by the ws adapter, which uses fixed values equal to these defaults.
	WriteWaitMS     int `json:"write_wait_ms"`
	PongWaitMS      int `json:"pong_wait_ms"`
	MaxMessageBytes int `json:"max_message_bytes"`

	// WaitForChangeTimeoutMS bounds how long a waitForChange request may
	// block before the adapter returns the current view anyway.
	WaitForChangeTimeoutMS int `json:"wait_for_change_timeout_ms"`
}

// Defaults returns a Config with every field set to its out-of-the-box
// value.
func Defaults() *Config {
	return &Config{
		BoardFile:              "perfect.txt",
		BindAddr:               ":8080",
		LogLevel:               "info",
		WriteWaitMS:            10_000,
		PongWaitMS:             60_000,
		MaxMessageBytes:        4096,
		WaitForChangeTimeoutMS: 30_000,
	}
}

// Load reads configuration from an optional config.json file, then applies
// environment variable overrides. Fields set in neither source retain
// their default values.
func Load() *Config {
	cfg := Defaults()

	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			log.Printf("config: failed to parse config.json: %v", err)
		}
	}

	overrideString(&cfg.BoardFile, "BOARD_FILE")
	overrideString(&cfg.BindAddr, "BIND_ADDR")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.JWKSURL, "JWKS_URL")
	overrideInt(&cfg.WriteWaitMS, "WRITE_WAIT_MS")
	overrideInt(&cfg.PongWaitMS, "PONG_WAIT_MS")
	overrideInt(&cfg.MaxMessageBytes, "MAX_MESSAGE_BYTES")
	overrideInt(&cfg.WaitForChangeTimeoutMS, "WAIT_FOR_CHANGE_TIMEOUT_MS")

	return cfg
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			log.Printf("config: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
