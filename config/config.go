/*
Package config loads server settings.

FILE FORMAT (TOML):

	[server]
	host = "127.0.0.1"
	port = 8080
	shutdown_timeout = "10s"

	[database]
	driver = "sqlite3"          # sqlite3 | sqlite | pgx
	dsn = "./data/ledger.db"

	[cors]
	allowed_origins = ["http://localhost:5173"]

	[metrics]
	enabled = true
	path = "/metrics"

	[audit]
	enabled = false
	interval = "1h"             # how often every wallet is replayed

Missing keys keep their DefaultConfig value. A missing file is not an
error; the defaults are used.
*/
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	CORS     CORSConfig     `toml:"cors"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Audit    AuditConfig    `toml:"audit"`
}

type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// AuditConfig drives the background drift check.
type AuditConfig struct {
	Enabled  bool   `toml:"enabled"`
	Interval string `toml:"interval"`
}

// DefaultConfig returns settings for a local single-user install.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: "10s",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "./data/ledger.db",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Audit: AuditConfig{
			Enabled:  false,
			Interval: "1h",
		},
	}
}

// Load reads path over the defaults. An empty path or a file that does
// not exist yields DefaultConfig.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if _, err := c.ShutdownTimeout(); err != nil {
		return err
	}
	switch c.Database.Driver {
	case "sqlite3", "sqlite", "pgx":
	default:
		return fmt.Errorf("database.driver %q: want sqlite3, sqlite or pgx", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is empty")
	}
	if c.Audit.Enabled {
		if _, err := c.AuditInterval(); err != nil {
			return err
		}
	}
	return nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

func (c Config) ShutdownTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("server.shutdown_timeout: %w", err)
	}
	return d, nil
}

func (c Config) AuditInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Audit.Interval)
	if err != nil {
		return 0, fmt.Errorf("audit.interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("audit.interval %s must be positive", d)
	}
	return d, nil
}
