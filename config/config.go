package config

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// AutoplayParams holds the autopilot's behavior.
type AutoplayParams struct {
	Enabled     bool `json:"enabled" env:"ENABLED"`
	DelayMinMS  int  `json:"delay_min_ms" env:"DELAY_MIN_MS"`
	DelayMaxMS  int  `json:"delay_max_ms" env:"DELAY_MAX_MS"`
	RaiseChance int  `json:"raise_chance" env:"RAISE_CHANCE"` // 0-100, probability to raise the minimum when allowed
	FoldChance  int  `json:"fold_chance" env:"FOLD_CHANCE"`   // 0-100, probability to fold facing a bet
}

// Config holds all configurable client parameters.
type Config struct {
	ServerURL     string `json:"server_url" env:"POKER_SERVER_URL"`
	APIBaseURL    string `json:"api_base_url" env:"POKER_API_BASE_URL"`
	AuthJWKSURL   string `json:"auth_jwks_url" env:"POKER_AUTH_JWKS_URL"`
	IdentityStore string `json:"identity_store" env:"POKER_IDENTITY_STORE"`

	DisplaySeats int `json:"display_seats" env:"DISPLAY_SEATS"`

	SendQueueSize      int   `json:"send_queue_size" env:"SEND_QUEUE_SIZE"`
	MaxMessageBytes    int64 `json:"max_message_bytes" env:"MAX_MESSAGE_BYTES"`
	WriteWaitMS        int   `json:"write_wait_ms" env:"WRITE_WAIT_MS"`
	PongWaitSec        int   `json:"pong_wait_sec" env:"PONG_WAIT_SEC"`
	ReconnectInitialMS int   `json:"reconnect_initial_ms" env:"RECONNECT_INITIAL_MS"`
	ReconnectMaxMS     int   `json:"reconnect_max_ms" env:"RECONNECT_MAX_MS"`
	ReconnectWindowSec int   `json:"reconnect_window_sec" env:"RECONNECT_WINDOW_SEC"`

	LogLevel string `json:"log_level" env:"LOG_LEVEL"`

	// Autoplay configures the optional autopilot.
	Autoplay AutoplayParams `json:"autoplay" envPrefix:"AUTOPLAY_"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		ServerURL:          "ws://localhost:8080/ws",
		APIBaseURL:         "http://localhost:8080",
		IdentityStore:      "sqlite:poker_client.db",
		DisplaySeats:       8,
		SendQueueSize:      64,
		MaxMessageBytes:    64 * 1024,
		WriteWaitMS:        10000,
		PongWaitSec:        60,
		ReconnectInitialMS: 500,
		ReconnectMaxMS:     5000,
		ReconnectWindowSec: 30,
		LogLevel:           "info",
		Autoplay: AutoplayParams{
			DelayMinMS:  800,
			DelayMaxMS:  2000,
			RaiseChance: 15,
			FoldChance:  20,
		},
	}
}

// LoadFile reads configuration from an optional JSON file at path,
// then applies environment variable overrides. Fields not set
// in either source retain their default values.
func LoadFile(path string) *Config {
	cfg := Defaults()

	if f, err := os.Open(path); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			slog.Warn("failed to parse config file", "tag", "config", "path", path, "err", err)
		}
	}

	// Fields whose variable fails to parse keep their previous value.
	if err := env.Parse(cfg); err != nil {
		var agg env.AggregateError
		if errors.As(err, &agg) {
			for _, e := range agg.Errors {
				slog.Warn("invalid environment value", "tag", "config", "err", e)
			}
		} else {
			slog.Warn("invalid environment value", "tag", "config", "err", err)
		}
	}
	return cfg
}

// WriteWait is WriteWaitMS as a duration.
func (c *Config) WriteWait() time.Duration {
	return time.Duration(c.WriteWaitMS) * time.Millisecond
}

// PongWait is PongWaitSec as a duration.
func (c *Config) PongWait() time.Duration {
	return time.Duration(c.PongWaitSec) * time.Second
}

// ReconnectInitial is ReconnectInitialMS as a duration.
func (c *Config) ReconnectInitial() time.Duration {
	return time.Duration(c.ReconnectInitialMS) * time.Millisecond
}

// ReconnectMax is ReconnectMaxMS as a duration.
func (c *Config) ReconnectMax() time.Duration {
	return time.Duration(c.ReconnectMaxMS) * time.Millisecond
}

// ReconnectWindow is how long a dropped connection is retried.
func (c *Config) ReconnectWindow() time.Duration {
	return time.Duration(c.ReconnectWindowSec) * time.Second
}
