// Package transport provides the HTTP capability injected into the source
// adapters and the download collaborator. It owns wire-level policy: the
// browser user agent the registries expect, charset normalization of
// response bodies, and a bounded retry on transient server errors.
//
// The sync engine never touches net/http directly; it receives a *Client
// with process-wide lifetime and explicit construction.
package transport

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/kamerwatch/kamerwatch/pkg/errors"
	"github.com/kamerwatch/kamerwatch/pkg/logging"
)

// DefaultTimeout is the per-request timeout.
const DefaultTimeout = 60 * time.Second

// userAgent mimics a desktop browser; the registries throttle or block
// obvious bot agents.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:103.0) Gecko/20100101 Firefox/103.0"

// retrySchedule backs off on 5xx responses. The registries intermittently
// answer 5xx even to sequential clients.
var retrySchedule = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}

// Client performs HTTP GET requests against the registries.
type Client struct {
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// New creates a transport client.
func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches a URL and returns the response body decoded to UTF-8.
// Responses with status >= 400 after retries yield a typed APIError; 5xx
// responses are retried on the backoff schedule first.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var lastStatus int

	for attempt := 0; ; attempt++ {
		body, status, err := c.get(ctx, url)
		if err != nil {
			return nil, err
		}
		lastStatus = status

		switch {
		case status < 400:
			return body, nil
		case status >= 500 && attempt < len(retrySchedule):
			logging.Warn().
				Str("url", url).
				Int("status", status).
				Dur("backoff", retrySchedule[attempt]).
				Msg("Server error, retrying")
			select {
			case <-time.After(retrySchedule[attempt]):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		default:
			return nil, errors.NewAPIError(registryName(url), lastStatus, url)
		}
	}
}

func (c *Client) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, errors.WrapIO("request", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &errors.APIError{Registry: registryName(url), URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp)
	if err != nil {
		return nil, resp.StatusCode, errors.WrapIO("read", url, err)
	}
	return body, resp.StatusCode, nil
}

// decodeBody normalizes the response body to UTF-8. The registries
// occasionally mislabel or omit the charset; an unknown label falls back to
// reading the body as-is.
func decodeBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)

	if name := charsetOf(resp.Header.Get("Content-Type")); name != "" && !strings.EqualFold(name, "utf-8") {
		if enc, err := htmlindex.Get(name); err == nil {
			reader = transform.NewReader(reader, enc.NewDecoder())
		}
	}

	return io.ReadAll(reader)
}

func charsetOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// registryName derives a short registry label from a URL for error
// reporting.
func registryName(url string) string {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return trimmed
}
