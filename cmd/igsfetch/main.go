package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
	ExitConfigError  = 3
	ExitIncomplete   = 4
)

// exitError carries a specific exit code out of a cobra RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, format string, args ...any) error {
	return &exitError{code: code, err: fmt.Errorf(format, args...)}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil && ee.code != ExitIncomplete {
			fmt.Fprintf(stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}

	// Anything cobra reports itself is a usage problem.
	fmt.Fprintf(stderr, "Error: %v\n", err)
	fmt.Fprintln(stderr, "Run 'igsfetch --help' for usage.")
	return ExitInvalidArgs
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	root       string
	lag        int
	date       string
	attempts   int
	progress   bool
	mirror     string
	logLevel   string
	logFormat  string
	noColor    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "igsfetch",
		Short: "Fetch daily GNSS observation files from the CDDIS archive",
		Long: `igsfetch downloads the daily RINEX observation files of a fixed set of IGS
stations for the day that is --lag days before today (or --date).

Files that already exist locally with the size the archive reports are
skipped, so running it again only fetches what is missing or incomplete.

Credentials are read from EARTHDATA_USERNAME and EARTHDATA_PASSWORD.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Without a subcommand the root behaves like "fetch".
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, g, nil)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Path to a YAML config file")
	pf.StringVar(&g.root, "root", "", "Local directory for downloaded files")
	pf.IntVar(&g.lag, "lag", 0, "Days between the reference date and the target day")
	pf.StringVar(&g.date, "date", "", "Reference date as YYYY-MM-DD (default: today)")
	pf.IntVar(&g.attempts, "attempts", 0, "Maximum download attempts per file")
	pf.BoolVar(&g.progress, "progress", false, "Show transfer progress")
	pf.StringVar(&g.mirror, "mirror", "", "Bucket URL that receives a copy of every complete file (s3://, gs://, file://)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format: text or json")
	pf.BoolVar(&g.noColor, "no-color", false, "Disable coloured log output")

	root.AddCommand(
		newFetchCmd(g),
		newURLsCmd(g),
		newVerifyCmd(g),
		newCleanCmd(g),
	)
	return root
}
