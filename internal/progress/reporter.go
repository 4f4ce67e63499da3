package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Options configures the progress reporter.
type Options struct {
	// TotalFiles is the number of files in the run.
	TotalFiles int

	// Output is where to write progress output.
	// Default: os.Stdout
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration

	// Target describes the day being fetched (for display).
	Target string

	// SourceURL is the archive root (for display).
	SourceURL string
}

// Reporter outputs human-readable progress information.
//
// Files are transferred one at a time, so the reporter tracks a single
// current file plus run totals.
type Reporter struct {
	opts Options

	mu          sync.Mutex
	currentName string
	currentSize int64
	currentDone atomic.Int64

	totalBytes atomic.Int64
	downloaded atomic.Int32
	skipped    atomic.Int32
	failed     atomic.Int32
	active     atomic.Bool

	startTime  time.Time
	lastUpdate time.Time
	lastBytes  int64
	stopCh     chan struct{}
	doneCh     chan struct{}
	started    bool
	stopped    bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins outputting progress information.
func (r *Reporter) Start() {
	r.mu.Lock()
	r.started = true
	r.startTime = time.Now()
	r.lastUpdate = r.startTime
	r.mu.Unlock()

	fmt.Fprintf(r.opts.Output, "[igsfetch] Fetching %d files for %s from %s\n",
		r.opts.TotalFiles, r.opts.Target, r.opts.SourceURL)

	go r.updateLoop()
}

// Stop stops the progress reporter and prints the final status.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped || !r.started {
		r.stopped = true
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
}

// FileStarted marks the beginning of a transfer attempt. size is the
// announced Content-Length, or -1 when unknown.
func (r *Reporter) FileStarted(name string, size int64) {
	r.mu.Lock()
	r.currentName = name
	r.currentSize = size
	r.mu.Unlock()
	r.currentDone.Store(0)
	r.active.Store(true)
}

// BytesWritten records n bytes written for the current file.
func (r *Reporter) BytesWritten(n int64) {
	r.currentDone.Add(n)
	r.totalBytes.Add(n)
}

// FileCompleted marks the current file as downloaded and verified.
func (r *Reporter) FileCompleted() {
	r.active.Store(false)
	r.downloaded.Add(1)
}

// FileSkipped marks a file that needed no download.
func (r *Reporter) FileSkipped() {
	r.skipped.Add(1)
}

// FileFailed marks the current file as permanently failed.
func (r *Reporter) FileFailed() {
	r.active.Store(false)
	r.failed.Add(1)
}

// Writer returns an io.Writer that counts bytes for the current file.
func (r *Reporter) Writer() io.Writer {
	return byteCounter{r}
}

type byteCounter struct{ r *Reporter }

func (b byteCounter) Write(p []byte) (int, error) {
	b.r.BytesWritten(int64(len(p)))
	return len(p), nil
}

// updateLoop periodically updates the progress display.
func (r *Reporter) updateLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

// printProgress outputs the current file's progress.
func (r *Reporter) printProgress() {
	if !r.active.Load() {
		return
	}

	now := time.Now()
	total := r.totalBytes.Load()
	done := r.currentDone.Load()

	r.mu.Lock()
	name, size := r.currentName, r.currentSize
	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	speed := float64(total-r.lastBytes) / elapsed
	r.lastUpdate = now
	r.lastBytes = total
	r.mu.Unlock()

	finished := int(r.downloaded.Load() + r.skipped.Load() + r.failed.Load())

	if size > 0 {
		percent := float64(done) / float64(size) * 100
		fmt.Fprintf(r.opts.Output, "\r[igsfetch] [%d/%d] %s: %.1f%% | %s / %s | Speed: %s/s    ",
			finished+1, r.opts.TotalFiles, name, percent,
			humanize.IBytes(uint64(done)), humanize.IBytes(uint64(size)),
			humanize.IBytes(uint64(speed)))
		return
	}
	fmt.Fprintf(r.opts.Output, "\r[igsfetch] [%d/%d] %s: %s | Speed: %s/s    ",
		finished+1, r.opts.TotalFiles, name,
		humanize.IBytes(uint64(done)), humanize.IBytes(uint64(speed)))
}

// printFinalStatus outputs the run totals.
func (r *Reporter) printFinalStatus() {
	total := r.totalBytes.Load()
	duration := time.Since(r.startTime)
	seconds := duration.Seconds()
	if seconds < 0.1 {
		seconds = 0.1
	}
	avgSpeed := float64(total) / seconds

	fmt.Fprintf(r.opts.Output, "\r[igsfetch] Files: %d downloaded | %d already complete | %d failed    \n",
		r.downloaded.Load(), r.skipped.Load(), r.failed.Load())
	fmt.Fprintf(r.opts.Output, "[igsfetch] Transferred: %s | Total time: %s | Average speed: %s/s\n",
		humanize.IBytes(uint64(total)),
		formatDuration(duration),
		humanize.IBytes(uint64(avgSpeed)),
	)
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes formats a byte count for display.
func FormatBytes(b int64) string {
	if b < 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(b))
}
