package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
	"github.com/segmentio/ksuid"

	igshttp "github.com/icqmula/descarga-datos-IGS/internal/http"
	"github.com/icqmula/descarga-datos-IGS/internal/progress"
)

// Remote is the subset of the archive client the fetcher needs.
type Remote interface {
	Head(ctx context.Context, url string) (*igshttp.FileInfo, error)
	Get(ctx context.Context, url string) (*igshttp.Response, error)
}

// Uploader receives a copy of every complete local file.
type Uploader interface {
	Put(ctx context.Context, localPath string) (bool, error)
}

// Options configures the fetcher.
type Options struct {
	// BaseURL is the archive root that relative paths are appended to.
	BaseURL string

	// LocalRoot is the directory files are written to.
	LocalRoot string

	// MaxAttempts bounds the download attempts per file.
	// Default: 3
	MaxAttempts int

	// ChunkSize is the read size used while streaming a body to disk.
	// Default: 8192
	ChunkSize int64

	// Backoff is the pause between attempts of the same file. Zero retries
	// immediately.
	Backoff time.Duration

	// Clock times the backoff. Default: clock.WallClock
	Clock clock.Clock

	// Progress is an optional progress reporter.
	Progress *progress.Reporter

	// Mirror is an optional destination for complete files.
	Mirror Uploader

	// Logger receives per-file outcome lines. Default: slog.Default()
	Logger *slog.Logger

	// RunID tags log lines and the summary. Default: a new KSUID.
	RunID string
}

// Outcome is the terminal state of one path in a run.
type Outcome int

const (
	// OutcomeDownloaded: a new copy was downloaded and its size verified.
	OutcomeDownloaded Outcome = iota
	// OutcomeSatisfied: the local copy already matched the remote size.
	OutcomeSatisfied
	// OutcomeMetadataFailed: the remote size could not be read, so the
	// existing local copy was left alone.
	OutcomeMetadataFailed
	// OutcomeFailed: every download attempt failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeSatisfied:
		return "already complete"
	case OutcomeMetadataFailed:
		return "metadata check failed"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// MetadataError wraps a failed HEAD request for an existing local file.
type MetadataError struct {
	URL string
	Err error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("verify remote file %s: %v", e.URL, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// PermanentFailureError is returned when a file could not be downloaded
// within the attempt bound.
type PermanentFailureError struct {
	URL      string
	Attempts int
	Last     AttemptResult
}

func (e *PermanentFailureError) Error() string {
	return fmt.Sprintf("could not download %s after %d attempts: %s: %v",
		e.URL, e.Attempts, e.Last.Kind, e.Last.Err)
}

func (e *PermanentFailureError) Unwrap() error { return e.Last.Err }

// Result records what happened to one path.
type Result struct {
	Path     string
	URL      string
	Local    string
	Outcome  Outcome
	Attempts int
	Size     int64
	Mirrored bool
	Err      error
}

// Summary aggregates the results of a run.
type Summary struct {
	RunID          string
	Results        []Result
	Downloaded     int
	Satisfied      int
	MetadataFailed int
	Failed         int
	Bytes          int64
	Cancelled      bool
}

// OK reports whether every processed path ended with a complete local copy.
func (s *Summary) OK() bool {
	return s.Failed == 0 && s.MetadataFailed == 0 && !s.Cancelled
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case OutcomeDownloaded:
		s.Downloaded++
		s.Bytes += r.Size
	case OutcomeSatisfied:
		s.Satisfied++
	case OutcomeMetadataFailed:
		s.MetadataFailed++
	case OutcomeFailed:
		s.Failed++
	}
}

// Fetcher downloads archive paths into a local directory, one at a time.
type Fetcher struct {
	remote Remote
	opts   Options
	log    *slog.Logger
}

// New creates a fetcher. Zero options take their defaults.
func New(remote Remote, opts Options) *Fetcher {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 8192
	}
	// retry.Call rejects a zero delay.
	if opts.Backoff <= 0 {
		opts.Backoff = time.Nanosecond
	}
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RunID == "" {
		opts.RunID = ksuid.New().String()
	}

	return &Fetcher{
		remote: remote,
		opts:   opts,
		log:    opts.Logger.With("run_id", opts.RunID),
	}
}

// RunID returns the identifier attached to this fetcher's log lines.
func (f *Fetcher) RunID() string {
	return f.opts.RunID
}

// Prepare creates the local root, including parents.
func (f *Fetcher) Prepare() error {
	if err := os.MkdirAll(f.opts.LocalRoot, 0755); err != nil {
		return fmt.Errorf("create local root: %w", err)
	}
	return nil
}

// RemoteURL joins a relative archive path onto the base URL.
func (f *Fetcher) RemoteURL(rel string) string {
	return strings.TrimSuffix(f.opts.BaseURL, "/") + "/" + strings.TrimPrefix(rel, "/")
}

// LocalPath returns where the file for rel is stored.
func (f *Fetcher) LocalPath(rel string) string {
	return filepath.Join(f.opts.LocalRoot, path.Base(rel))
}

// Run fetches every path in order. Per-file failures are recorded in the
// summary and never stop the batch; a cancelled ctx stops it before the
// next path.
func (f *Fetcher) Run(ctx context.Context, paths []string) *Summary {
	s := &Summary{RunID: f.opts.RunID}

	for _, p := range paths {
		if ctx.Err() != nil {
			s.Cancelled = true
			break
		}
		s.add(f.Fetch(ctx, p))
	}
	if ctx.Err() != nil {
		s.Cancelled = true
	}

	f.log.Info("run finished",
		"downloaded", s.Downloaded,
		"satisfied", s.Satisfied,
		"metadata_failed", s.MetadataFailed,
		"failed", s.Failed,
		"bytes", s.Bytes,
		"cancelled", s.Cancelled,
	)
	return s
}

// Fetch makes sure a complete local copy of rel exists.
func (f *Fetcher) Fetch(ctx context.Context, rel string) Result {
	url := f.RemoteURL(rel)
	local := f.LocalPath(rel)
	res := Result{Path: rel, URL: url, Local: local}
	log := f.log.With("file", filepath.Base(local))

	st, err := os.Stat(local)
	switch {
	case err == nil:
		log.Info("local file exists, verifying size")
		info, err := f.remote.Head(ctx, url)
		if err != nil {
			res.Outcome = OutcomeMetadataFailed
			res.Err = &MetadataError{URL: url, Err: err}
			log.Error("could not verify remote file, skipping", "url", url, "error", err)
			if f.opts.Progress != nil {
				f.opts.Progress.FileFailed()
			}
			return res
		}
		if info.Size == st.Size() {
			res.Outcome = OutcomeSatisfied
			res.Size = st.Size()
			log.Info("file complete, skipping", "size", st.Size())
			if f.opts.Progress != nil {
				f.opts.Progress.FileSkipped()
			}
			f.mirror(ctx, &res, log)
			return res
		}
		log.Warn("size mismatch, downloading again", "local_size", st.Size(), "remote_size", info.Size)
	case !errors.Is(err, fs.ErrNotExist):
		log.Warn("cannot stat local file, downloading", "error", err)
	}

	var last AttemptResult
	err = retry.Call(retry.CallArgs{
		Func: func() error {
			res.Attempts++
			log.Info("downloading", "url", url, "attempt", res.Attempts)
			last = f.attempt(ctx, url, local)
			if last.Kind == AttemptSuccess {
				return nil
			}
			return &attemptError{Result: last}
		},
		IsFatalError: func(err error) bool {
			var ae *attemptError
			return !errors.As(err, &ae) || !shouldRetry(ctx, ae.Result)
		},
		NotifyFunc: func(err error, attempt int) {
			log.Warn("download attempt failed",
				"attempt", attempt,
				"kind", last.Kind.String(),
				"written", last.Written,
				"expected", last.Expected,
				"error", last.Err,
			)
			if attempt < f.opts.MaxAttempts {
				log.Info("retrying download", "next_attempt", attempt+1, "max_attempts", f.opts.MaxAttempts)
			}
		},
		Attempts: f.opts.MaxAttempts,
		Delay:    f.opts.Backoff,
		Clock:    f.opts.Clock,
		Stop:     ctx.Done(),
	})
	if err == nil {
		res.Outcome = OutcomeDownloaded
		res.Size = last.Written
		log.Info("downloaded", "size", last.Written, "attempts", res.Attempts)
		if f.opts.Progress != nil {
			f.opts.Progress.FileCompleted()
		}
		f.mirror(ctx, &res, log)
		return res
	}

	res.Outcome = OutcomeFailed
	res.Err = &PermanentFailureError{URL: url, Attempts: res.Attempts, Last: last}
	log.Error("download failed", "url", url, "attempts", res.Attempts, "error", last.Err)
	if f.opts.Progress != nil {
		f.opts.Progress.FileFailed()
	}
	return res
}

// mirror copies a complete file to the configured bucket. Failures are
// logged and do not change the file's outcome.
func (f *Fetcher) mirror(ctx context.Context, res *Result, log *slog.Logger) {
	if f.opts.Mirror == nil {
		return
	}
	uploaded, err := f.opts.Mirror.Put(ctx, res.Local)
	if err != nil {
		log.Warn("mirror upload failed", "error", err)
		return
	}
	res.Mirrored = true
	if uploaded {
		log.Info("mirrored")
	}
}
