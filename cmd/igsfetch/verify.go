package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/icqmula/descarga-datos-IGS/internal/fetcher"
	"github.com/icqmula/descarga-datos-IGS/internal/mirror"
	"github.com/icqmula/descarga-datos-IGS/internal/progress"
)

func newVerifyCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [STATION...]",
		Short: "Compare local files with the archive without downloading",
		Long: `Check every local file of the target day against the size the archive
reports. Nothing is downloaded.

With --mirror, complete files are also looked up in the bucket.

Exits with status 4 if any file is missing or incomplete, locally or in the
mirror, or could not be checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, g, args)
		},
	}
}

func runVerify(cmd *cobra.Command, g *globalFlags, stations []string) error {
	cfg, err := loadConfig(cmd, g)
	if err != nil {
		return err
	}
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

	var m *mirror.Mirror
	if cfg.Mirror.BucketURL != "" {
		m, err = mirror.Open(cmd.Context(), cfg.Mirror.BucketURL, cfg.Mirror.Prefix)
		if err != nil {
			return exitWith(ExitGeneralError, "%w", err)
		}
		defer m.Close()
	}

	f := fetcher.New(newClient(cfg), fetcherOptions(cfg, logger))
	out := cmd.OutOrStdout()

	incomplete := 0
	for _, p := range paths {
		c := f.Verify(cmd.Context(), p)
		switch c.State {
		case fetcher.StateComplete:
			fmt.Fprintf(out, "%-14s %s (%s)\n", c.State, c.Local, progress.FormatBytes(c.LocalSize))
			if m != nil && !mirrored(cmd.Context(), out, m, c) {
				incomplete++
			}
		case fetcher.StateMismatch:
			incomplete++
			fmt.Fprintf(out, "%-14s %s (local %s, remote %s%s)\n", c.State, c.Local,
				progress.FormatBytes(c.LocalSize), progress.FormatBytes(c.RemoteSize), modified(c.RemoteModified))
		case fetcher.StateMissing:
			incomplete++
			fmt.Fprintf(out, "%-14s %s\n", c.State, c.Local)
		default:
			incomplete++
			fmt.Fprintf(out, "%-14s %s: %v\n", c.State, c.Local, c.Err)
		}
	}

	fmt.Fprintf(out, "Target %s: %d of %d files complete\n", target, len(paths)-incomplete, len(paths))
	if incomplete > 0 {
		return exitWith(ExitIncomplete, "%s incomplete", plural(incomplete, "file"))
	}
	return nil
}

// modified formats the archive's modification time for a mismatch line.
func modified(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return ", modified " + humanize.Time(t)
}

// mirrored reports whether the bucket holds a copy of c with the same size.
func mirrored(ctx context.Context, out io.Writer, m *mirror.Mirror, c fetcher.Check) bool {
	name := filepath.Base(c.Local)
	size, err := m.Size(ctx, name)
	switch {
	case err != nil:
		fmt.Fprintf(out, "%-14s %s: %v\n", "mirror error", m.Key(name), err)
		return false
	case size < 0:
		fmt.Fprintf(out, "%-14s %s\n", "not mirrored", m.Key(name))
		return false
	case size != c.LocalSize:
		fmt.Fprintf(out, "%-14s %s (mirror %s)\n", "mirror stale", m.Key(name), progress.FormatBytes(size))
		return false
	}
	return true
}
