package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// Common errors.
var (
	ErrNotFound     = errors.New("http: resource not found")
	ErrForbidden    = errors.New("http: access forbidden")
	ErrUnauthorized = errors.New("http: unauthorized")
	ErrServerError  = errors.New("http: server error")
)

// StatusError is returned for non-success responses that have no dedicated
// sentinel error.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http: unexpected status %s", e.Status)
}

// Options configures the HTTP client.
type Options struct {
	// Timeout bounds each request, including reading the body.
	// Default: 5m
	Timeout time.Duration

	// Username and Password are sent as HTTP Basic credentials.
	Username string
	Password string

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// AuthHosts are hosts, besides the one originally requested, that may
	// receive the credentials when a redirect lands on them.
	// Default: urs.earthdata.nasa.gov
	AuthHosts []string
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:   5 * time.Minute,
		UserAgent: "igsfetch/1.0",
		AuthHosts: []string{"urs.earthdata.nasa.gov"},
	}
}

// FileInfo contains metadata about a remote file.
type FileInfo struct {
	// Size is the announced Content-Length, -1 if the server sent none.
	Size int64
	// LastModified is zero when the header is absent or malformed.
	LastModified time.Time
}

// Response is an open streamed GET response.
type Response struct {
	Body io.ReadCloser
	// ContentLength is the size announced by the server, -1 if unknown.
	ContentLength int64
}

// Client is an authenticated HTTP client for the GNSS archive.
//
// The archive answers with a redirect chain through the Earthdata login
// host, which sets a session cookie; the cookie jar keeps that session for
// the final hop.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultOptions().UserAgent
	}
	if opts.AuthHosts == nil {
		opts.AuthHosts = DefaultOptions().AuthHosts
	}

	jar, _ := cookiejar.New(nil)

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 30 * time.Second,
		DisableCompression:  true, // Content-Length must describe the raw .crx.gz bytes
	}

	c := &Client{opts: opts}
	c.client = &http.Client{
		Transport:     transport,
		Timeout:       opts.Timeout,
		Jar:           jar,
		CheckRedirect: c.checkRedirect,
	}
	return c
}

// Head performs a HEAD request to get file metadata.
func (c *Client) Head(ctx context.Context, url string) (*FileInfo, error) {
	req, err := c.newRequest(ctx, http.MethodHead, url)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("head %s: %w", url, err)
	}
	resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	info := &FileInfo{Size: resp.ContentLength}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			info.LastModified = t
		}
	}

	return info, nil
}

// Get performs a streamed GET request. The caller must close Body.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return &Response{
		Body:          resp.Body,
		ContentLength: resp.ContentLength,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("User-Agent", c.opts.UserAgent)
	return req, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.opts.Username != "" || c.opts.Password != "" {
		req.SetBasicAuth(c.opts.Username, c.opts.Password)
	}
}

// checkRedirect re-attaches credentials when a hop lands on the original
// host or on one of the configured login hosts. net/http drops the
// Authorization header whenever a redirect changes host.
func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("http: stopped after 10 redirects")
	}
	// Never send credentials in clear after starting on https.
	if via[0].URL.Scheme == "https" && req.URL.Scheme != "https" {
		return nil
	}
	if c.mayAuthorize(req.URL.Hostname(), via[0].URL.Hostname()) {
		c.authorize(req)
	}
	return nil
}

func (c *Client) mayAuthorize(host, origin string) bool {
	if strings.EqualFold(host, origin) {
		return true
	}
	for _, h := range c.opts.AuthHosts {
		if strings.EqualFold(host, h) {
			return true
		}
	}
	return false
}

// checkStatus returns an appropriate error for non-success status codes.
func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code >= 500:
		return fmt.Errorf("%w: %s", ErrServerError, resp.Status)
	default:
		return &StatusError{Code: code, Status: resp.Status}
	}
}
