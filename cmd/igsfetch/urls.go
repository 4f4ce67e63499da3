package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/icqmula/descarga-datos-IGS/internal/fetcher"
)

func newURLsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "urls [STATION...]",
		Short: "Print the remote URLs for the target day",
		Long: `Print the archive URL of every file the fetch command would process.

Needs neither credentials nor network access.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runURLs(cmd, g, args)
		},
	}
}

func runURLs(cmd *cobra.Command, g *globalFlags, stations []string) error {
	cfg, err := loadConfig(cmd, g)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg, g)
	if err != nil {
		return err
	}

	_, paths, err := targetPaths(cfg, g, stations, logger)
	if err != nil {
		return err
	}

	f := fetcher.New(nil, fetcherOptions(cfg, logger))
	out := cmd.OutOrStdout()
	for _, p := range paths {
		fmt.Fprintln(out, f.RemoteURL(p))
	}
	return nil
}
