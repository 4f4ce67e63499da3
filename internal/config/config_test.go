package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL %s, got %s", DefaultBaseURL, cfg.BaseURL)
	}
	if cfg.LagDays != 40 {
		t.Errorf("expected default lag 40, got %d", cfg.LagDays)
	}
	if cfg.Download.MaxAttempts != 3 {
		t.Errorf("expected default max attempts 3, got %d", cfg.Download.MaxAttempts)
	}
	if cfg.Download.ChunkSize != 8192 {
		t.Errorf("expected default chunk size 8192, got %d", cfg.Download.ChunkSize)
	}
	if cfg.Download.Timeout != 5*time.Minute {
		t.Errorf("expected default timeout 5m, got %v", cfg.Download.Timeout)
	}
	if len(cfg.Stations.Rate15S) != 2 || len(cfg.Stations.Rate30S) != 2 {
		t.Errorf("expected 2+2 default stations, got %v", cfg.Stations)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
base_url: https://archive.example.org/daily/
local_root: /tmp/igs
lag_days: 0
stations:
  rate_15s: [AAAA00XXX]
  rate_30s: [BBBB00YYY, CCCC00ZZZ]
download:
  max_attempts: 5
  chunk_size: 64KiB
  backoff: 500ms
  timeout: 1m
mirror:
  bucket_url: mem://
  prefix: igs/
log:
  level: debug
  format: json
progress: true
credentials:
  username: file-user
  password: file-pass
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.BaseURL != "https://archive.example.org/daily/" {
		t.Errorf("unexpected base URL %s", cfg.BaseURL)
	}
	if cfg.LagDays != 0 {
		t.Errorf("expected explicit lag 0, got %d", cfg.LagDays)
	}
	if len(cfg.Stations.Rate15S) != 1 || cfg.Stations.Rate15S[0] != "AAAA00XXX" {
		t.Errorf("unexpected 15s stations %v", cfg.Stations.Rate15S)
	}
	if len(cfg.Stations.Rate30S) != 2 {
		t.Errorf("unexpected 30s stations %v", cfg.Stations.Rate30S)
	}
	if cfg.Download.MaxAttempts != 5 {
		t.Errorf("expected max attempts 5, got %d", cfg.Download.MaxAttempts)
	}
	if cfg.Download.ChunkSize != 64*1024 {
		t.Errorf("expected chunk size 64KiB, got %d", cfg.Download.ChunkSize)
	}
	if cfg.Download.Backoff != 500*time.Millisecond {
		t.Errorf("expected backoff 500ms, got %v", cfg.Download.Backoff)
	}
	if cfg.Download.Timeout != time.Minute {
		t.Errorf("expected timeout 1m, got %v", cfg.Download.Timeout)
	}
	if cfg.Mirror.BucketURL != "mem://" || cfg.Mirror.Prefix != "igs/" {
		t.Errorf("unexpected mirror config %+v", cfg.Mirror)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
	if !cfg.Progress {
		t.Error("expected progress true")
	}
	if cfg.Credentials.Username != "file-user" {
		t.Errorf("expected file credentials, got %+v", cfg.Credentials)
	}
}

func TestLoadFromYAMLKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("local_root: /data\n"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.LagDays != 40 {
		t.Errorf("expected default lag preserved, got %d", cfg.LagDays)
	}
	if cfg.Download.MaxAttempts != 3 {
		t.Errorf("expected default attempts preserved, got %d", cfg.Download.MaxAttempts)
	}
	if cfg.LocalRoot != "/data" {
		t.Errorf("expected local root /data, got %s", cfg.LocalRoot)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IGSFETCH_LOCAL_ROOT", "/srv/igs")
	t.Setenv("IGSFETCH_LAG_DAYS", "10")
	t.Setenv("IGSFETCH_STATIONS_15S", "AAAA00XXX, BBBB00YYY")
	t.Setenv("IGSFETCH_MAX_ATTEMPTS", "7")
	t.Setenv("IGSFETCH_CHUNK_SIZE", "1MiB")
	t.Setenv("IGSFETCH_BACKOFF", "250ms")
	t.Setenv("IGSFETCH_PROGRESS", "1")
	t.Setenv(EnvUsername, "env-user")
	t.Setenv(EnvPassword, "env-pass")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.LocalRoot != "/srv/igs" {
		t.Errorf("expected local root /srv/igs, got %s", cfg.LocalRoot)
	}
	if cfg.LagDays != 10 {
		t.Errorf("expected lag 10, got %d", cfg.LagDays)
	}
	if len(cfg.Stations.Rate15S) != 2 || cfg.Stations.Rate15S[1] != "BBBB00YYY" {
		t.Errorf("unexpected 15s stations %v", cfg.Stations.Rate15S)
	}
	if cfg.Download.MaxAttempts != 7 {
		t.Errorf("expected attempts 7, got %d", cfg.Download.MaxAttempts)
	}
	if cfg.Download.ChunkSize != 1024*1024 {
		t.Errorf("expected chunk size 1MiB, got %d", cfg.Download.ChunkSize)
	}
	if cfg.Download.Backoff != 250*time.Millisecond {
		t.Errorf("expected backoff 250ms, got %v", cfg.Download.Backoff)
	}
	if !cfg.Progress {
		t.Error("expected progress true")
	}
	if err := cfg.RequireCredentials(); err != nil {
		t.Errorf("RequireCredentials: %v", err)
	}
}

func TestLoadFromEnvInvalid(t *testing.T) {
	t.Setenv("IGSFETCH_MAX_ATTEMPTS", "three")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err == nil {
		t.Error("expected error for non-numeric attempts")
	}
}

func TestRequireCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		ok    bool
	}{
		{"both set", Credentials{Username: "u", Password: "p"}, true},
		{"missing password", Credentials{Username: "u"}, false},
		{"missing username", Credentials{Password: "p"}, false},
		{"missing both", Credentials{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Credentials = tt.creds
			err := cfg.RequireCredentials()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(*Config) {}, false},
		{"missing base URL", func(c *Config) { c.BaseURL = "" }, true},
		{"ftp base URL", func(c *Config) { c.BaseURL = "ftp://gdc.cddis.eosdis.nasa.gov/" }, true},
		{"missing local root", func(c *Config) { c.LocalRoot = "" }, true},
		{"negative lag", func(c *Config) { c.LagDays = -1 }, true},
		{"zero lag", func(c *Config) { c.LagDays = 0 }, false},
		{"no stations", func(c *Config) { c.Stations = StationsConfig{} }, true},
		{"duplicate station", func(c *Config) {
			c.Stations.Rate30S = append(c.Stations.Rate30S, c.Stations.Rate15S[0])
		}, true},
		{"zero attempts", func(c *Config) { c.Download.MaxAttempts = 0 }, true},
		{"zero chunk size", func(c *Config) { c.Download.ChunkSize = 0 }, true},
		{"max chunk size", func(c *Config) { c.Download.ChunkSize = MaxChunkSize }, false},
		{"oversized chunk", func(c *Config) { c.Download.ChunkSize = MaxChunkSize + 1 }, true},
		{"zero backoff", func(c *Config) { c.Download.Backoff = 0 }, false},
		{"zero timeout", func(c *Config) { c.Download.Timeout = 0 }, true},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := Default()
	base.Credentials = Credentials{Username: "u", Password: "p"}

	override := Config{
		LocalRoot: "/override",
		Download:  DownloadConfig{MaxAttempts: 9},
	}

	merged := base.Merge(override)

	if merged.BaseURL != DefaultBaseURL {
		t.Errorf("expected base URL preserved, got %s", merged.BaseURL)
	}
	if merged.Credentials.Username != "u" {
		t.Errorf("expected credentials preserved, got %+v", merged.Credentials)
	}
	if merged.Download.ChunkSize != 8192 {
		t.Errorf("expected chunk size preserved, got %d", merged.Download.ChunkSize)
	}
	if merged.LocalRoot != "/override" {
		t.Errorf("expected local root overridden, got %s", merged.LocalRoot)
	}
	if merged.Download.MaxAttempts != 9 {
		t.Errorf("expected attempts overridden to 9, got %d", merged.Download.MaxAttempts)
	}
}

func TestLoadYAMLFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}
