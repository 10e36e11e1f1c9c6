package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/muurk/tbk/internal/nvs"
	"github.com/muurk/tbk/internal/wifi"
)

// CurrentVersion is the config file format version.
const CurrentVersion = 1

// Config represents the entire device configuration file.
type Config struct {
	Version   int             `yaml:"version"`
	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
	WiFi      WiFiConfig      `yaml:"wifi"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

// LogConfig selects the log level. The --log-level flag and TBK_LOG_LEVEL
// take precedence; empty everywhere keeps logging silent.
type LogConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error
}

// StorageConfig selects the non-volatile store backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`        // memory, file or sqlite
	Path    string `yaml:"path,omitempty"` // Empty = next to the config file
}

// WiFiConfig holds connection manager settings.
type WiFiConfig struct {
	JoinTimeoutMs int             `yaml:"join_timeout_ms"`
	Reconnect     ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig maps onto wifi.ReconnectPolicy. All zero keeps the
// immediate, unlimited reconnect.
type ReconnectConfig struct {
	IntervalMs    int  `yaml:"interval_ms"`
	Exponential   bool `yaml:"exponential,omitempty"`
	MaxIntervalMs int  `yaml:"max_interval_ms,omitempty"`
	MaxAttempts   int  `yaml:"max_attempts"`
}

// SimulatorConfig describes the radio environment of the simulated driver.
type SimulatorConfig struct {
	ConnectDelayMs int           `yaml:"connect_delay_ms"`
	AccessPoints   []AccessPoint `yaml:"access_points,omitempty"`
}

// AccessPoint is one simulated network in range.
type AccessPoint struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Storage: StorageConfig{Backend: nvs.BackendFile},
		WiFi: WiFiConfig{
			JoinTimeoutMs: int(wifi.DefaultJoinTimeout / time.Millisecond),
		},
		Simulator: SimulatorConfig{
			ConnectDelayMs: 300,
		},
	}
}

// Validate checks values that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	switch c.Storage.Backend {
	case nvs.BackendMemory, nvs.BackendFile, nvs.BackendSQLite:
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	if c.WiFi.JoinTimeoutMs < 0 {
		return fmt.Errorf("wifi.join_timeout_ms must not be negative")
	}
	r := c.WiFi.Reconnect
	if r.IntervalMs < 0 || r.MaxIntervalMs < 0 || r.MaxAttempts < 0 {
		return fmt.Errorf("wifi.reconnect values must not be negative")
	}
	if c.Simulator.ConnectDelayMs < 0 {
		return fmt.Errorf("simulator.connect_delay_ms must not be negative")
	}
	return nil
}

// JoinTimeout returns the default join timeout (0 = manager default).
func (c *Config) JoinTimeout() time.Duration {
	return time.Duration(c.WiFi.JoinTimeoutMs) * time.Millisecond
}

// ReconnectPolicy converts the reconnect settings.
func (c *Config) ReconnectPolicy() wifi.ReconnectPolicy {
	r := c.WiFi.Reconnect
	return wifi.ReconnectPolicy{
		Interval:    time.Duration(r.IntervalMs) * time.Millisecond,
		Exponential: r.Exponential,
		MaxInterval: time.Duration(r.MaxIntervalMs) * time.Millisecond,
		MaxAttempts: r.MaxAttempts,
	}
}

// ConnectDelay returns the simulated connect latency.
func (c *Config) ConnectDelay() time.Duration {
	return time.Duration(c.Simulator.ConnectDelayMs) * time.Millisecond
}

// StoragePath resolves the store location. An explicit path wins;
// otherwise the store lives in dir, named after the backend.
func (c *Config) StoragePath(dir string) string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if c.Storage.Backend == nvs.BackendSQLite {
		return filepath.Join(dir, "nvs.db")
	}
	return filepath.Join(dir, "nvs.yaml")
}
