package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// State describes a local file compared against the archive.
type State int

const (
	StateComplete State = iota
	StateMismatch
	StateMissing
	StateError
)

func (s State) String() string {
	switch s {
	case StateComplete:
		return "complete"
	case StateMismatch:
		return "size mismatch"
	case StateMissing:
		return "missing"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Check is the result of verifying one path without downloading it.
type Check struct {
	Path       string
	Local      string
	State      State
	LocalSize  int64
	RemoteSize int64
	// RemoteModified is zero when the archive sent no Last-Modified.
	RemoteModified time.Time
	Err            error
}

// Verify compares the local copy of rel with the remote size. A missing
// local file is reported without contacting the archive.
func (f *Fetcher) Verify(ctx context.Context, rel string) Check {
	c := Check{Path: rel, Local: f.LocalPath(rel), LocalSize: -1, RemoteSize: -1}

	st, err := os.Stat(c.Local)
	if errors.Is(err, fs.ErrNotExist) {
		c.State = StateMissing
		return c
	}
	if err != nil {
		c.State, c.Err = StateError, err
		return c
	}
	c.LocalSize = st.Size()

	info, err := f.remote.Head(ctx, f.RemoteURL(rel))
	if err != nil {
		c.State, c.Err = StateError, &MetadataError{URL: f.RemoteURL(rel), Err: err}
		return c
	}
	c.RemoteSize = info.Size
	c.RemoteModified = info.LastModified

	if c.LocalSize == c.RemoteSize {
		c.State = StateComplete
	} else {
		c.State = StateMismatch
	}
	return c
}

// PartialFiles lists the .part files left in the local root by failed
// downloads.
func (f *Fetcher) PartialFiles() ([]string, error) {
	entries, err := os.ReadDir(f.opts.LocalRoot)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local root: %w", err)
	}

	var parts []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".part") {
			parts = append(parts, filepath.Join(f.opts.LocalRoot, e.Name()))
		}
	}
	return parts, nil
}
