package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/icqmula/descarga-datos-IGS/internal/fetcher"
)

func newCleanCmd(g *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove partial downloads from the local root",
		Long: `Remove the .part files that failed downloads leave in the local root.

By default prompts for confirmation unless --force is specified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd, g, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")
	return cmd
}

func runClean(cmd *cobra.Command, g *globalFlags, force bool) error {
	cfg, err := loadConfig(cmd, g)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg, g)
	if err != nil {
		return err
	}

	f := fetcher.New(nil, fetcherOptions(cfg, logger))
	parts, err := f.PartialFiles()
	if err != nil {
		return exitWith(ExitGeneralError, "%w", err)
	}

	out := cmd.OutOrStdout()
	if len(parts) == 0 {
		fmt.Fprintln(out, "No partial files")
		return nil
	}

	if !force {
		fmt.Fprintf(out, "Remove %s from %s? [y/N]: ", plural(len(parts), "partial file"), cfg.LocalRoot)
		reader := bufio.NewReader(cmd.InOrStdin())
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled")
			return nil
		}
	}

	removed := 0
	for _, p := range parts {
		if err := os.Remove(p); err != nil {
			logger.Error("could not remove partial file", "path", p, "error", err)
			continue
		}
		removed++
	}
	fmt.Fprintf(out, "Removed %s\n", plural(removed, "partial file"))
	if removed < len(parts) {
		return exitWith(ExitGeneralError, "%d partial files could not be removed", len(parts)-removed)
	}
	return nil
}
