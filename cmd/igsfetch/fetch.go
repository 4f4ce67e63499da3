package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/icqmula/descarga-datos-IGS/internal/fetcher"
	"github.com/icqmula/descarga-datos-IGS/internal/mirror"
	"github.com/icqmula/descarga-datos-IGS/internal/progress"
)

func newFetchCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [STATION...]",
		Short: "Download the target day's observation files",
		Long: `Download the observation files for the target day into the local root.

Each file is checked against the size the archive reports. Existing complete
files are skipped; missing or incomplete ones are downloaded again, with up
to --attempts tries per file. A file that still fails is reported and the
run continues with the next one.

With STATION arguments only those stations are fetched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, g, args)
		},
	}
}

func runFetch(cmd *cobra.Command, g *globalFlags, stations []string) error {
	cfg, err := loadConfig(cmd, g)
	if err != nil {
		return err
	}
	// Fail before any network activity.
	if err := requireCredentials(cfg); err != nil {
		return err
	}

	logger, err := newLogger(cmd, cfg, g)
	if err != nil {
		return err
	}

	target, paths, err := targetPaths(cfg, g, stations, logger)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		logger.Warn("no stations to fetch", "target", target.String())
		return nil
	}

	ctx := cmd.Context()
	opts := fetcherOptions(cfg, logger)

	if cfg.Mirror.BucketURL != "" {
		m, err := mirror.Open(ctx, cfg.Mirror.BucketURL, cfg.Mirror.Prefix)
		if err != nil {
			return exitWith(ExitGeneralError, "%w", err)
		}
		defer m.Close()
		opts.Mirror = m
	}

	var reporter *progress.Reporter
	if cfg.Progress {
		reporter = progress.NewReporter(progress.Options{
			TotalFiles: len(paths),
			Output:     cmd.ErrOrStderr(),
			Target:     target.String(),
			SourceURL:  cfg.BaseURL,
		})
		opts.Progress = reporter
	}

	f := fetcher.New(newClient(cfg), opts)
	if err := f.Prepare(); err != nil {
		return exitWith(ExitGeneralError, "%w", err)
	}

	logger.Info("starting run",
		"run_id", f.RunID(),
		"target", target.String(),
		"files", len(paths),
		"local_root", cfg.LocalRoot,
	)

	if reporter != nil {
		reporter.Start()
	}
	summary := f.Run(ctx, paths)
	if reporter != nil {
		reporter.Stop()
	}

	printSummary(cmd.OutOrStdout(), summary)

	if summary.Cancelled {
		return exitWith(ExitGeneralError, "interrupted")
	}
	// Per-file failures are reported above and do not change the exit code.
	return nil
}

func printSummary(w io.Writer, s *fetcher.Summary) {
	for _, r := range s.Results {
		name := r.Path
		if r.Local != "" {
			name = r.Local
		}
		switch r.Outcome {
		case fetcher.OutcomeDownloaded:
			fmt.Fprintf(w, "%-16s %s (%s, %s)\n", r.Outcome, name, progress.FormatBytes(r.Size), plural(r.Attempts, "attempt"))
		case fetcher.OutcomeSatisfied:
			fmt.Fprintf(w, "%-16s %s (%s)\n", "complete", name, progress.FormatBytes(r.Size))
		default:
			fmt.Fprintf(w, "%-16s %s: %v\n", r.Outcome, name, r.Err)
		}
	}
	fmt.Fprintf(w, "Run %s: %d downloaded, %d already complete, %d unverified, %d failed\n",
		s.RunID, s.Downloaded, s.Satisfied, s.MetadataFailed, s.Failed)
}
