// Package fetcher downloads daily observation files from the archive into a
// local directory.
//
// Paths are processed strictly one after another. For each path the fetcher:
//
//  1. Resolves the remote URL and the local destination (the path's base
//     name under the local root).
//  2. If the local file exists, issues a HEAD request and skips the path when
//     the sizes already match. A failed HEAD skips the path entirely.
//  3. Otherwise streams a GET into "<name>.part", compares the bytes written
//     with Content-Length and renames the part file into place on a match.
//  4. Retries transport failures and size mismatches up to MaxAttempts.
//
// Every attempt yields an AttemptResult; shouldRetry alone decides whether
// another attempt follows. Per-file failures are reported in the run Summary
// and never abort the batch.
package fetcher
