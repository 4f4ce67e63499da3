package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// AttemptKind classifies the result of one download attempt.
type AttemptKind int

const (
	// AttemptSuccess means the body was written in full and renamed into place.
	AttemptSuccess AttemptKind = iota
	// AttemptTransport covers request errors, non-success statuses and
	// broken streams.
	AttemptTransport
	// AttemptSizeMismatch means the byte count written differs from the
	// announced Content-Length.
	AttemptSizeMismatch
	// AttemptWrite is a local filesystem failure.
	AttemptWrite
)

func (k AttemptKind) String() string {
	switch k {
	case AttemptSuccess:
		return "success"
	case AttemptTransport:
		return "transport failure"
	case AttemptSizeMismatch:
		return "size mismatch"
	case AttemptWrite:
		return "write failure"
	default:
		return fmt.Sprintf("AttemptKind(%d)", int(k))
	}
}

// AttemptResult is the outcome of a single GET-and-write attempt.
type AttemptResult struct {
	Kind     AttemptKind
	Written  int64
	Expected int64
	Err      error
}

// SizeMismatchError reports a transfer whose length did not match the
// announced Content-Length. Expected is -1 when the server sent none.
type SizeMismatchError struct {
	Written  int64
	Expected int64
}

func (e *SizeMismatchError) Error() string {
	if e.Expected < 0 {
		return fmt.Sprintf("size mismatch: wrote %d bytes, server sent no Content-Length", e.Written)
	}
	return fmt.Sprintf("size mismatch: wrote %d bytes, expected %d", e.Written, e.Expected)
}

// shouldRetry reports whether r may be followed by another attempt. Only
// transport failures and size mismatches are retried, and never once ctx is
// done. The attempt bound is enforced by the caller.
func shouldRetry(ctx context.Context, r AttemptResult) bool {
	if ctx.Err() != nil {
		return false
	}
	switch r.Kind {
	case AttemptTransport, AttemptSizeMismatch:
		return true
	default:
		return false
	}
}

// attemptError carries a failed AttemptResult through retry.Call.
type attemptError struct {
	Result AttemptResult
}

func (e *attemptError) Error() string {
	return fmt.Sprintf("%s: %v", e.Result.Kind, e.Result.Err)
}

func (e *attemptError) Unwrap() error { return e.Result.Err }

// attempt streams url into local+".part" and renames it over local once the
// written size matches the Content-Length. A failed attempt leaves the
// partial file behind; the next attempt truncates it.
func (f *Fetcher) attempt(ctx context.Context, url, local string) AttemptResult {
	resp, err := f.remote.Get(ctx, url)
	if err != nil {
		return AttemptResult{Kind: AttemptTransport, Expected: -1, Err: err}
	}
	defer resp.Body.Close()

	if f.opts.Progress != nil {
		f.opts.Progress.FileStarted(filepath.Base(local), resp.ContentLength)
	}

	part := partPath(local)
	out, err := os.OpenFile(part, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return AttemptResult{Kind: AttemptWrite, Expected: resp.ContentLength, Err: fmt.Errorf("open %s: %w", part, err)}
	}

	written, readErr, writeErr := f.copyChunks(out, resp.Body)
	closeErr := out.Close()

	r := AttemptResult{Written: written, Expected: resp.ContentLength}
	switch {
	case writeErr != nil:
		r.Kind, r.Err = AttemptWrite, fmt.Errorf("write %s: %w", part, writeErr)
	case errors.Is(readErr, io.ErrUnexpectedEOF):
		// The server closed the stream before Content-Length bytes arrived.
		r.Kind, r.Err = AttemptSizeMismatch, &SizeMismatchError{Written: written, Expected: resp.ContentLength}
	case readErr != nil:
		r.Kind, r.Err = AttemptTransport, fmt.Errorf("read body: %w", readErr)
	case closeErr != nil:
		r.Kind, r.Err = AttemptWrite, fmt.Errorf("close %s: %w", part, closeErr)
	case written != resp.ContentLength:
		r.Kind, r.Err = AttemptSizeMismatch, &SizeMismatchError{Written: written, Expected: resp.ContentLength}
	default:
		if err := os.Rename(part, local); err != nil {
			r.Kind, r.Err = AttemptWrite, fmt.Errorf("rename %s: %w", part, err)
			return r
		}
		r.Kind = AttemptSuccess
	}
	return r
}

// copyChunks copies src to dst in ChunkSize reads. Read and write errors
// are returned separately.
func (f *Fetcher) copyChunks(dst io.Writer, src io.Reader) (written int64, readErr, writeErr error) {
	if f.opts.Progress != nil {
		dst = io.MultiWriter(dst, f.opts.Progress.Writer())
	}
	buf := make([]byte, f.opts.ChunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			nw, werr := dst.Write(buf[:n])
			written += int64(nw)
			if werr != nil {
				return written, nil, werr
			}
		}
		if err == io.EOF {
			return written, nil, nil
		}
		if err != nil {
			return written, err, nil
		}
	}
}

func partPath(local string) string {
	return local + ".part"
}
