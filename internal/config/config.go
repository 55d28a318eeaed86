// Package config loads loader configuration from config.yaml, .env and the
// environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Resolver names.
const (
	ResolverIndex = "index"
	ResolverQuery = "query"
)

// Common errors.
var (
	ErrMissingDataDir  = errors.New("song and log data directories must be set")
	ErrUnknownResolver = errors.New("unknown resolver")
)

// Config holds all configuration for the loader.
// Environment variables override YAML values. The database password only comes
// from the environment.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Data     DataConfig     `yaml:"data"`
	Log      LogConfig      `yaml:"log"`

	// Resolver selects how plays are matched to songs: "index" loads the song
	// catalog into memory once per run, "query" runs one lookup per play.
	Resolver string `yaml:"resolver" env:"RESOLVER" env-default:"index"`

	// SkipMalformed drops malformed play events with a warning instead of
	// aborting the run.
	SkipMalformed bool `yaml:"skip_malformed" env:"SKIP_MALFORMED" env-default:"false"`

	// MetricsTextfile, when set, receives the run's metrics in the Prometheus
	// text format after a load.
	MetricsTextfile string `yaml:"metrics_textfile" env:"METRICS_TEXTFILE" env-default:""`

	HTTPAddr   string `yaml:"http_addr" env:"HTTP_ADDR" env-default:"127.0.0.1:8080"`
	ExportPath string `yaml:"export_path" env:"EXPORT_PATH" env-default:"songplays.parquet"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"PGHOST" env-default:"127.0.0.1"`
	Port     int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User     string `yaml:"user" env:"PGUSER" env-default:"student"`
	Password string `yaml:"-" env:"PGPASSWORD"`
	Name     string `yaml:"name" env:"PGDATABASE" env-default:"sparkifydb"`
	SSLMode  string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// URL returns the connection URL.
func (d DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	if d.Password == "" {
		u.User = url.User(d.User)
	}
	return u.String()
}

// DataConfig holds the input directories.
type DataConfig struct {
	SongDir string `yaml:"song_dir" env:"SONG_DATA_DIR" env-default:"data/song_data"`
	LogDir  string `yaml:"log_dir" env:"LOG_DATA_DIR" env-default:"data/log_data"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT" env-default:"false"`
}

// Load reads configuration. Values from a .env file in the working directory
// are exported first, then path is read as YAML if it exists, then the
// environment overrides both.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	cfg := &Config{}
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("reading environment: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values cleanenv cannot.
func (c *Config) Validate() error {
	if c.Data.SongDir == "" || c.Data.LogDir == "" {
		return ErrMissingDataDir
	}
	switch c.Resolver {
	case ResolverIndex, ResolverQuery:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownResolver, c.Resolver)
	}
	return nil
}
