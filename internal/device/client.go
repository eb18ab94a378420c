package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Prober is implemented by *Client and faked in tests.
type Prober interface {
	Probe(ctx context.Context) ProbeResult
}

// Uploader is implemented by *Client and faked in tests.
type Uploader interface {
	Upload(ctx context.Context, name string, content io.Reader) error
}

var (
	_ Prober   = (*Client)(nil)
	_ Uploader = (*Client)(nil)
)

// Client talks to the device HTTP API.
type Client struct {
	baseURL      *url.URL
	http         *http.Client
	userAgent    string
	probeTimeout time.Duration
}

const (
	// ProbeTimeout bounds a single health check.
	ProbeTimeout = 5 * time.Second

	// UploadField is the multipart field carrying file bytes.
	UploadField = "file"
	// FilenameHeader repeats the filename outside the multipart body.
	FilenameHeader = "X-Filename"

	StatusPath = "/status"
	UploadPath = "/upload"

	defaultUserAgent = "cpsync/0.1"
)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithProbeTimeout overrides ProbeTimeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// NewClient builds a Client for the user-supplied device address.
func NewClient(address string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(address)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		// No client-wide timeout: uploads of large books may take a while.
		// The probe carries its own deadline.
		http:         &http.Client{},
		userAgent:    defaultUserAgent,
		probeTimeout: ProbeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized device base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Probe issues GET /status bounded by the probe timeout. It never returns an
// error; failures are folded into the ProbeResult.
func (c *Client) Probe(ctx context.Context) ProbeResult {
	result := ProbeResult{BaseURL: c.BaseURL()}

	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.endpoint(StatusPath), nil)
	if err != nil {
		result.Outcome = ProbeFailed
		result.Err = fmt.Errorf("create request: %w", err)
		return result
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(probeCtx, err) {
			result.Outcome = ProbeTimedOut
			result.Err = fmt.Errorf("%w: %w", ErrTimeout, err)
			return result
		}
		result.Outcome = ProbeFailed
		result.Err = fmt.Errorf("%w: %w", ErrUnreachable, err)
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.Outcome = ProbeNotReady
		result.Err = fmt.Errorf("%w: status %d", ErrNotReady, resp.StatusCode)
		return result
	}

	var payload StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if isTimeout(probeCtx, err) {
			result.Outcome = ProbeTimedOut
			result.Err = fmt.Errorf("%w: %w", ErrTimeout, err)
			return result
		}
		result.Outcome = ProbeNotReady
		result.Err = fmt.Errorf("%w: decode status: %w", ErrNotReady, err)
		return result
	}
	if !payload.Ready {
		result.Outcome = ProbeNotReady
		result.Err = ErrNotReady
		return result
	}

	result.Outcome = ProbeConnected
	return result
}

// Upload posts content as a multipart body under UploadField, repeating the
// filename in the X-Filename header. Any non-2xx response is an error
// wrapping ErrRejected.
func (c *Client) Upload(ctx context.Context, name string, content io.Reader) error {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		part, err := form.CreateFormFile(UploadField, name)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, content); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(UploadPath), pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set(FilenameHeader, name)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		_ = pr.CloseWithError(err)
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned status %d", ErrRejected, UploadPath, resp.StatusCode)
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.ResolveReference(&url.URL{Path: path}).String()
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// NormalizeAddress turns a user-typed address into a base URL string,
// prefixing http:// when no scheme is present.
func NormalizeAddress(address string) (string, error) {
	u, err := parseBaseURL(address)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func parseBaseURL(address string) (*url.URL, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, fmt.Errorf("device address is empty")
	}
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse device address %q: %w", address, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse device address %q: missing host", address)
	}
	u.Path = ""
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
