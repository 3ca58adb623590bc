// Package config loads the service configuration: an optional TOML file
// for tuning knobs, with environment variables (and a local .env file in
// development) supplying secrets and deployment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all finledger configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Cache    CacheConfig    `toml:"cache"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string   `toml:"addr"`
	ReadTimeout     duration `toml:"read_timeout"`
	WriteTimeout    duration `toml:"write_timeout"`
	ShutdownTimeout duration `toml:"shutdown_timeout"`
}

// DatabaseConfig holds Postgres settings. URL is normally supplied via
// the DATABASE_URL environment variable rather than the file.
type DatabaseConfig struct {
	URL           string `toml:"url,omitempty"`
	MigrationsDir string `toml:"migrations_dir"`
}

// CacheConfig holds the session cache tuning.
type CacheConfig struct {
	TTL duration `toml:"ttl"`
}

// LedgerConfig holds reconciliation tuning.
type LedgerConfig struct {
	StoreTimeout duration `toml:"store_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// duration wraps time.Duration so TOML values can be written as "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     duration{15 * time.Second},
			WriteTimeout:    duration{30 * time.Second},
			ShutdownTimeout: duration{10 * time.Second},
		},
		Database: DatabaseConfig{
			MigrationsDir: "db/migrations",
		},
		Cache: CacheConfig{
			TTL: duration{5 * time.Minute},
		},
		Ledger: LedgerConfig{
			StoreTimeout: duration{5 * time.Second},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path (missing file is fine), then applies
// environment overrides. A .env file in the working directory is loaded
// first when present.
func Load(path string) (Config, error) {
	// Ignore the error: a missing .env just means plain env vars.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Defaults apply.
		default:
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	return cfg, nil
}

// Validate checks that settings required at startup are present.
func (c Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is not set (DATABASE_URL or [database].url)")
	}
	if c.Cache.TTL.Duration <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.Ledger.StoreTimeout.Duration <= 0 {
		return fmt.Errorf("ledger store timeout must be positive")
	}
	return nil
}
