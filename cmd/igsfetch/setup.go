package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/juju/clock"
	"github.com/spf13/cobra"

	"github.com/icqmula/descarga-datos-IGS/internal/config"
	"github.com/icqmula/descarga-datos-IGS/internal/fetcher"
	igshttp "github.com/icqmula/descarga-datos-IGS/internal/http"
	"github.com/icqmula/descarga-datos-IGS/internal/logging"
	"github.com/icqmula/descarga-datos-IGS/internal/urlgen"
)

// loadConfig builds the effective configuration: defaults, then the YAML
// file, then the environment, then flags.
func loadConfig(cmd *cobra.Command, g *globalFlags) (config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		cfg, err = config.LoadFromFile(g.configPath)
		if err != nil {
			return cfg, exitWith(ExitConfigError, "%w", err)
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return cfg, exitWith(ExitConfigError, "%w", err)
	}

	cfg = cfg.Merge(config.Config{
		LocalRoot: g.root,
		Download:  config.DownloadConfig{MaxAttempts: g.attempts},
		Mirror:    config.MirrorConfig{BucketURL: g.mirror},
		Log:       config.LogConfig{Level: g.logLevel, Format: g.logFormat},
		Progress:  g.progress,
	})
	// Zero is a valid lag, so it cannot go through Merge.
	if cmd.Flags().Changed("lag") {
		cfg.LagDays = g.lag
	}

	if err := cfg.Validate(); err != nil {
		return cfg, exitWith(ExitConfigError, "%w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg config.Config, g *globalFlags) (*slog.Logger, error) {
	logger, err := logging.New(cfg.Log, cmd.ErrOrStderr(), g.noColor)
	if err != nil {
		return nil, exitWith(ExitConfigError, "%w", err)
	}
	return logger, nil
}

// targetPaths resolves the target day and the archive paths to process.
// With explicit station IDs only those are used; unknown IDs are logged
// and skipped.
func targetPaths(cfg config.Config, g *globalFlags, stations []string, logger *slog.Logger) (urlgen.Target, []string, error) {
	gen := &urlgen.Generator{
		Catalog: urlgen.NewCatalog(cfg.Stations.Rate15S, cfg.Stations.Rate30S),
		Lag:     cfg.LagDays,
		Clock:   clock.WallClock,
	}
	if g.date != "" {
		ref, err := time.Parse(time.DateOnly, g.date)
		if err != nil {
			return urlgen.Target{}, nil, exitWith(ExitInvalidArgs, "invalid --date %q: want YYYY-MM-DD", g.date)
		}
		gen.Clock = urlgen.FixedClock(ref)
	}

	if len(stations) == 0 {
		target, paths := gen.Generate()
		return target, paths, nil
	}

	target, paths, unknown := gen.GenerateFor(stations)
	for _, id := range unknown {
		logger.Warn("unknown station, skipping", "station", id)
	}
	return target, paths, nil
}

func newClient(cfg config.Config) *igshttp.Client {
	opts := igshttp.DefaultOptions()
	opts.Timeout = cfg.Download.Timeout
	opts.Username = cfg.Credentials.Username
	opts.Password = cfg.Credentials.Password
	return igshttp.NewClient(opts)
}

func fetcherOptions(cfg config.Config, logger *slog.Logger) fetcher.Options {
	return fetcher.Options{
		BaseURL:     cfg.BaseURL,
		LocalRoot:   cfg.LocalRoot,
		MaxAttempts: cfg.Download.MaxAttempts,
		ChunkSize:   cfg.Download.ChunkSize,
		Backoff:     cfg.Download.Backoff,
		Logger:      logger,
	}
}

func requireCredentials(cfg config.Config) error {
	if err := cfg.RequireCredentials(); err != nil {
		return exitWith(ExitConfigError, "%w", err)
	}
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
