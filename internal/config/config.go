// Package config loads service configuration from YAML, a .env file and
// VITALSYNC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	MaxBodyMB int    `yaml:"max_body_mb"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	// Path is the database file when Driver is sqlite.
	Path string `yaml:"path"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used for anything a file or the
// environment does not set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 3001, MaxBodyMB: 200},
		Database: DatabaseConfig{
			Driver:  DriverPostgres,
			Port:    5432,
			SSLMode: "disable",
			Path:    "data/vitalsync.db",
		},
		Tailscale: TailscaleConfig{Hostname: "vitalsync", StateDir: "tsnet-state"},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// MaxBodyBytes is the ingest body limit in bytes.
func (s ServerConfig) MaxBodyBytes() int64 {
	return int64(s.MaxBodyMB) << 20
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A .env file in the working directory is loaded first when present. An empty
// path skips the YAML file. Env vars use the prefix VITALSYNC_:
//
//	VITALSYNC_SERVER_HOST, VITALSYNC_SERVER_PORT, VITALSYNC_SERVER_MAX_BODY_MB,
//	VITALSYNC_DB_DRIVER, VITALSYNC_DB_HOST, VITALSYNC_DB_PORT, VITALSYNC_DB_NAME,
//	VITALSYNC_DB_USER, VITALSYNC_DB_PASSWORD, VITALSYNC_DB_SSLMODE, VITALSYNC_DB_PATH,
//	VITALSYNC_TAILSCALE_ENABLED, VITALSYNC_TAILSCALE_HOSTNAME, VITALSYNC_TAILSCALE_STATE_DIR,
//	VITALSYNC_LOG_LEVEL, VITALSYNC_LOG_FORMAT
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.Host, "VITALSYNC_SERVER_HOST")
	setInt(&cfg.Server.Port, "VITALSYNC_SERVER_PORT")
	setInt(&cfg.Server.MaxBodyMB, "VITALSYNC_SERVER_MAX_BODY_MB")

	setString(&cfg.Database.Driver, "VITALSYNC_DB_DRIVER")
	setString(&cfg.Database.Host, "VITALSYNC_DB_HOST")
	setInt(&cfg.Database.Port, "VITALSYNC_DB_PORT")
	setString(&cfg.Database.Name, "VITALSYNC_DB_NAME")
	setString(&cfg.Database.User, "VITALSYNC_DB_USER")
	setString(&cfg.Database.Password, "VITALSYNC_DB_PASSWORD")
	setString(&cfg.Database.SSLMode, "VITALSYNC_DB_SSLMODE")
	setString(&cfg.Database.Path, "VITALSYNC_DB_PATH")

	if v := os.Getenv("VITALSYNC_TAILSCALE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = enabled
		}
	}
	setString(&cfg.Tailscale.Hostname, "VITALSYNC_TAILSCALE_HOSTNAME")
	setString(&cfg.Tailscale.StateDir, "VITALSYNC_TAILSCALE_STATE_DIR")

	setString(&cfg.Log.Level, "VITALSYNC_LOG_LEVEL")
	setString(&cfg.Log.Format, "VITALSYNC_LOG_FORMAT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return errors.New("server.port is required")
	}
	if c.Server.MaxBodyMB <= 0 {
		return errors.New("server.max_body_mb must be positive")
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return errors.New("database.host is required")
		}
		if c.Database.Port == 0 {
			return errors.New("database.port is required")
		}
		if c.Database.Name == "" {
			return errors.New("database.name is required")
		}
		if c.Database.User == "" {
			return errors.New("database.user is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver %q is not one of %s, %s", c.Database.Driver, DriverPostgres, DriverSQLite)
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return errors.New("tailscale.hostname is required when tailscale is enabled")
	}

	if _, err := c.Log.level(); err != nil {
		return err
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		return fmt.Errorf("log.format %q is not text or json", c.Log.Format)
	}
	return nil
}

func (l LogConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// NewLogger builds the service logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := l.level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
