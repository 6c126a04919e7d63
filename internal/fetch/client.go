package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TransientError is a failure worth retrying: the request may succeed on a
// later attempt. Status is zero for network-level failures.
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch: transient failure (HTTP %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("fetch: transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError is a failure that retrying cannot fix, such as a 404 or a
// response with no payload.
type PermanentError struct {
	Status int
	Reason string
}

func (e *PermanentError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch: permanent failure (HTTP %d): %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("fetch: permanent failure: %s", e.Reason)
}

// IsTransient reports whether err is a retryable fetch failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Options configures the HTTP client.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 32
	MaxIdleConnsPerHost int

	// Timeout for individual requests. Tiles are small; the default of
	// 4s is generous for a healthy service.
	Timeout time.Duration
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 32,
		Timeout:             4 * time.Second,
	}
}

// Client is an HTTP client for tile downloads. It performs no retries
// itself; retry and circuit-breaking policy live in [Fetcher].
type Client struct {
	client *http.Client
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = 32
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 4 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
	}
}

// GetTile downloads one tile. The returned error, if any, is a
// *TransientError or *PermanentError per the package classification.
func (c *Client) GetTile(ctx context.Context, url, userAgent string) (data []byte, contentType string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", &PermanentError{Reason: fmt.Sprintf("build request: %v", err)}
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Timeouts, connection resets, DNS failures.
		return nil, "", &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode, resp.Status); err != nil {
		return nil, "", err
	}

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &TransientError{Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(data) == 0 {
		return nil, "", &PermanentError{Status: resp.StatusCode, Reason: "empty body"}
	}

	return data, resp.Header.Get("Content-Type"), nil
}

// classifyStatus maps a response status to the error taxonomy. 429 counts
// as transient: the service asked us to back off, not to go away.
func classifyStatus(code int, status string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests || code >= 500:
		return &TransientError{Status: code, Err: fmt.Errorf("server responded %s", status)}
	default:
		return &PermanentError{Status: code, Reason: status}
	}
}
