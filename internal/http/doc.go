// Package http provides the authenticated HTTP client used to talk to the
// GNSS archive.
//
// This package handles:
//   - HTTP Basic credentials on every request and redirect hop
//   - Session cookies across the Earthdata login redirect chain
//   - HEAD requests to learn the remote size
//   - Streamed GET requests
//   - Mapping non-success statuses to sentinel errors
//
// The client does not retry; package fetcher owns the retry policy.
//
// # Usage
//
//	client := http.NewClient(http.Options{
//	    Timeout:  5 * time.Minute,
//	    Username: user,
//	    Password: pass,
//	})
//
//	info, err := client.Head(ctx, url) // info.Size
//
//	resp, err := client.Get(ctx, url)
//	defer resp.Body.Close()
package http
