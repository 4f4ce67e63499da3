package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Environment variables holding the Earthdata login used for HTTP Basic auth.
const (
	EnvUsername = "EARTHDATA_USERNAME"
	EnvPassword = "EARTHDATA_PASSWORD"
)

// DefaultBaseURL is the CDDIS daily GNSS archive.
const DefaultBaseURL = "https://cddis.nasa.gov/archive/gps/data/daily/"

// MaxChunkSize bounds download.chunk_size; each read allocates one chunk.
const MaxChunkSize = 64 << 20

// ErrMissingCredentials is returned by RequireCredentials when either the
// username or the password is empty.
var ErrMissingCredentials = errors.New("config: earthdata credentials not found")

// Config defines configuration for the igsfetch CLI.
type Config struct {
	BaseURL     string         `yaml:"base_url"`
	LocalRoot   string         `yaml:"local_root"`
	LagDays     int            `yaml:"lag_days"`
	Stations    StationsConfig `yaml:"stations"`
	Download    DownloadConfig `yaml:"download"`
	Mirror      MirrorConfig   `yaml:"mirror"`
	Log         LogConfig      `yaml:"log"`
	Progress    bool           `yaml:"progress"`
	Credentials Credentials    `yaml:"credentials"`
}

// StationsConfig lists station identifiers by sampling-rate class.
type StationsConfig struct {
	Rate15S []string `yaml:"rate_15s"`
	Rate30S []string `yaml:"rate_30s"`
}

// DownloadConfig defines transfer and retry behavior.
type DownloadConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	ChunkSize   int64         `yaml:"chunk_size"`
	Backoff     time.Duration `yaml:"backoff"`
	Timeout     time.Duration `yaml:"timeout"`
}

// MirrorConfig points at an optional object storage bucket that receives a
// copy of every verified file.
type MirrorConfig struct {
	BucketURL string `yaml:"bucket_url"`
	Prefix    string `yaml:"prefix"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Credentials for the remote archive.
type Credentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		LocalRoot: "./data/igs",
		LagDays:   40,
		Stations: StationsConfig{
			Rate15S: []string{"RDSD00DOM", "SFDM00USA"},
			Rate30S: []string{"SANT00CHL", "AGGO00ARG"},
		},
		Download: DownloadConfig{
			MaxAttempts: 3,
			ChunkSize:   8 * 1024,
			Backoff:     2 * time.Second,
			Timeout:     5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string sizes and durations.
type yamlConfig struct {
	BaseURL     string             `yaml:"base_url"`
	LocalRoot   string             `yaml:"local_root"`
	LagDays     *int               `yaml:"lag_days"`
	Stations    StationsConfig     `yaml:"stations"`
	Download    yamlDownloadConfig `yaml:"download"`
	Mirror      MirrorConfig       `yaml:"mirror"`
	Log         LogConfig          `yaml:"log"`
	Progress    bool               `yaml:"progress"`
	Credentials Credentials        `yaml:"credentials"`
}

type yamlDownloadConfig struct {
	MaxAttempts int    `yaml:"max_attempts"`
	ChunkSize   string `yaml:"chunk_size"`
	Backoff     string `yaml:"backoff"`
	Timeout     string `yaml:"timeout"`
}

// LoadFromFile loads configuration from a YAML file. Keys absent from the
// file keep their default values.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.BaseURL != "" {
		cfg.BaseURL = yc.BaseURL
	}
	if yc.LocalRoot != "" {
		cfg.LocalRoot = yc.LocalRoot
	}
	// lag_days: 0 is meaningful (fetch today's files), so presence matters.
	if yc.LagDays != nil {
		cfg.LagDays = *yc.LagDays
	}
	if len(yc.Stations.Rate15S) > 0 || len(yc.Stations.Rate30S) > 0 {
		cfg.Stations = yc.Stations
	}
	if yc.Download.MaxAttempts != 0 {
		cfg.Download.MaxAttempts = yc.Download.MaxAttempts
	}
	if yc.Download.ChunkSize != "" {
		size, err := parseSize(yc.Download.ChunkSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse download.chunk_size: %w", err)
		}
		cfg.Download.ChunkSize = size
	}
	if yc.Download.Backoff != "" {
		d, err := time.ParseDuration(yc.Download.Backoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse download.backoff: %w", err)
		}
		cfg.Download.Backoff = d
	}
	if yc.Download.Timeout != "" {
		d, err := time.ParseDuration(yc.Download.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse download.timeout: %w", err)
		}
		cfg.Download.Timeout = d
	}
	if yc.Mirror.BucketURL != "" {
		cfg.Mirror.BucketURL = yc.Mirror.BucketURL
	}
	if yc.Mirror.Prefix != "" {
		cfg.Mirror.Prefix = yc.Mirror.Prefix
	}
	if yc.Log.Level != "" {
		cfg.Log.Level = yc.Log.Level
	}
	if yc.Log.Format != "" {
		cfg.Log.Format = yc.Log.Format
	}
	cfg.Progress = yc.Progress
	cfg.Credentials = yc.Credentials

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the IGSFETCH_ prefix, except for the Earthdata
// credentials which keep their conventional names.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("IGSFETCH_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("IGSFETCH_LOCAL_ROOT"); v != "" {
		c.LocalRoot = v
	}
	if v := os.Getenv("IGSFETCH_LAG_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse IGSFETCH_LAG_DAYS: %w", err)
		}
		c.LagDays = n
	}
	if v := os.Getenv("IGSFETCH_STATIONS_15S"); v != "" {
		c.Stations.Rate15S = splitList(v)
	}
	if v := os.Getenv("IGSFETCH_STATIONS_30S"); v != "" {
		c.Stations.Rate30S = splitList(v)
	}
	if v := os.Getenv("IGSFETCH_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse IGSFETCH_MAX_ATTEMPTS: %w", err)
		}
		c.Download.MaxAttempts = n
	}
	if v := os.Getenv("IGSFETCH_CHUNK_SIZE"); v != "" {
		size, err := parseSize(v)
		if err != nil {
			return fmt.Errorf("parse IGSFETCH_CHUNK_SIZE: %w", err)
		}
		c.Download.ChunkSize = size
	}
	if v := os.Getenv("IGSFETCH_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse IGSFETCH_BACKOFF: %w", err)
		}
		c.Download.Backoff = d
	}
	if v := os.Getenv("IGSFETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse IGSFETCH_TIMEOUT: %w", err)
		}
		c.Download.Timeout = d
	}
	if v := os.Getenv("IGSFETCH_MIRROR_BUCKET"); v != "" {
		c.Mirror.BucketURL = v
	}
	if v := os.Getenv("IGSFETCH_MIRROR_PREFIX"); v != "" {
		c.Mirror.Prefix = v
	}
	if v := os.Getenv("IGSFETCH_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("IGSFETCH_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("IGSFETCH_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv(EnvUsername); v != "" {
		c.Credentials.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		c.Credentials.Password = v
	}

	return nil
}

// Validate validates the configuration. Credentials are checked separately
// by RequireCredentials since not every command talks to the archive.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("config: base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("config: invalid base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: base_url must be http or https, got %q", u.Scheme)
	}
	if c.LocalRoot == "" {
		return errors.New("config: local_root is required")
	}
	if c.LagDays < 0 {
		return errors.New("config: lag_days must not be negative")
	}
	if len(c.Stations.Rate15S) == 0 && len(c.Stations.Rate30S) == 0 {
		return errors.New("config: at least one station is required")
	}
	seen := make(map[string]bool, len(c.Stations.Rate15S))
	for _, id := range c.Stations.Rate15S {
		seen[id] = true
	}
	for _, id := range c.Stations.Rate30S {
		if seen[id] {
			return fmt.Errorf("config: station %s listed in both rate_15s and rate_30s", id)
		}
	}
	if c.Download.MaxAttempts <= 0 {
		return errors.New("config: download.max_attempts must be positive")
	}
	if c.Download.ChunkSize <= 0 {
		return errors.New("config: download.chunk_size must be positive")
	}
	if c.Download.ChunkSize > MaxChunkSize {
		return fmt.Errorf("config: download.chunk_size must be at most %s", humanize.IBytes(MaxChunkSize))
	}
	if c.Download.Backoff < 0 {
		return errors.New("config: download.backoff must not be negative")
	}
	if c.Download.Timeout <= 0 {
		return errors.New("config: download.timeout must be positive")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// RequireCredentials reports ErrMissingCredentials unless both the username
// and the password are set.
func (c *Config) RequireCredentials() error {
	if c.Credentials.Username == "" || c.Credentials.Password == "" {
		return fmt.Errorf("%w: set %s and %s", ErrMissingCredentials, EnvUsername, EnvPassword)
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.BaseURL != "" {
		c.BaseURL = override.BaseURL
	}
	if override.LocalRoot != "" {
		c.LocalRoot = override.LocalRoot
	}
	if override.LagDays != 0 {
		c.LagDays = override.LagDays
	}
	if len(override.Stations.Rate15S) > 0 {
		c.Stations.Rate15S = override.Stations.Rate15S
	}
	if len(override.Stations.Rate30S) > 0 {
		c.Stations.Rate30S = override.Stations.Rate30S
	}
	if override.Download.MaxAttempts != 0 {
		c.Download.MaxAttempts = override.Download.MaxAttempts
	}
	if override.Download.ChunkSize != 0 {
		c.Download.ChunkSize = override.Download.ChunkSize
	}
	if override.Download.Backoff != 0 {
		c.Download.Backoff = override.Download.Backoff
	}
	if override.Download.Timeout != 0 {
		c.Download.Timeout = override.Download.Timeout
	}
	if override.Mirror.BucketURL != "" {
		c.Mirror.BucketURL = override.Mirror.BucketURL
	}
	if override.Mirror.Prefix != "" {
		c.Mirror.Prefix = override.Mirror.Prefix
	}
	if override.Log.Level != "" {
		c.Log.Level = override.Log.Level
	}
	if override.Log.Format != "" {
		c.Log.Format = override.Log.Format
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	if override.Credentials.Username != "" {
		c.Credentials.Username = override.Credentials.Username
	}
	if override.Credentials.Password != "" {
		c.Credentials.Password = override.Credentials.Password
	}
	return c
}

// parseSize accepts humanized sizes such as "8KiB", "64kB" or "8192".
func parseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
