package web

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config tunes the host server and the pipelines it creates per session.
type Config struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`

	// OracleURL is the diagram rendering service endpoint.
	OracleURL string `toml:"oracle_url"`

	// DebounceMs is the render quiet period in milliseconds.
	DebounceMs int `toml:"debounce_ms"`

	// MaxFixAttempts bounds assistant requests per fix sequence.
	MaxFixAttempts int `toml:"max_fix_attempts"`

	// FixTimeoutSecs bounds how long one fix request waits for a response.
	FixTimeoutSecs int `toml:"fix_timeout_secs"`

	// ExportWidth is the fixed PNG export width in pixels.
	ExportWidth int `toml:"export_width"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           8080,
		DebounceMs:     500,
		MaxFixAttempts: 2,
		FixTimeoutSecs: 30,
		ExportWidth:    1200,
	}
}

// LoadConfig reads a TOML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

// Debounce returns the configured quiet period as a duration.
func (c Config) Debounce() time.Duration {
	if c.DebounceMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// FixTimeout returns the configured per-request fix timeout.
func (c Config) FixTimeout() time.Duration {
	if c.FixTimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.FixTimeoutSecs) * time.Second
}

// Address returns the host:port the server binds to.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
