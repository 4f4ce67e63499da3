// Package progress provides progress reporting for a fetch run.
//
// This package outputs human-readable progress information,
// including per-file completion percentage, transfer speed, and run totals.
//
// # Usage
//
//	reporter := progress.NewReporter(Options{
//	    TotalFiles: len(paths),
//	    Target:     "2024/150",
//	    Output:     os.Stderr,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	reporter.FileStarted(name, contentLength)
//	io.Copy(io.MultiWriter(f, reporter.Writer()), body)
//	reporter.FileCompleted()
//
// # Output Format
//
//	[igsfetch] Fetching 4 files for 2024/150 from https://cddis.nasa.gov/archive/gps/data/daily/
//	[igsfetch] [2/4] SFDM00USA_R_20241500000_01D_15S_MO.crx.gz: 45.2% | 1.1 MiB / 2.5 MiB | Speed: 640 KiB/s
//	[igsfetch] Files: 3 downloaded | 1 already complete | 0 failed
//	[igsfetch] Transferred: 7.6 MiB | Total time: 14s | Average speed: 556 KiB/s
package progress
