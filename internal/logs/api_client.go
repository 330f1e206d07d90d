package logs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fidctail/internal/poller"
)

// TailPath is the monitoring endpoint polled for log pages.
const TailPath = "/monitoring/logs/tail"

const (
	headerKeyID     = "x-api-key"
	headerKeySecret = "x-api-secret"

	maxBodyBytes  = 64 << 20
	maxErrorBytes = 512
)

var (
	ErrAPIUnavailable = errors.New("log API unavailable")
	ErrUnauthorized   = errors.New("log API rejected credentials")
	ErrBodyTooLarge   = errors.New("response exceeds limit")
)

// HTTPDoer describes the HTTP client used by Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Credentials is the log API key pair.
type Credentials struct {
	KeyID  string
	Secret string
}

// Client polls the tail endpoint of a single tenant.
type Client struct {
	base      *url.URL
	creds     Credentials
	http      HTTPDoer
	userAgent string
	maxBody   int64
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithTimeout bounds each request, including reading the body.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http = &http.Client{Timeout: timeout}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(agent)
	}
}

// WithMaxBodyBytes caps the size of a successful response body.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// NewClient returns a client for host, e.g. "https://tenant.example.com".
func NewClient(host string, creds Credentials, opts ...Option) (*Client, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, errors.New("tail client: host is required")
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("tail client: parse host: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("tail client: host %q has no hostname", host)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	client := &Client{
		base:    base,
		creds:   creds,
		http:    &http.Client{Timeout: 30 * time.Second},
		maxBody: maxBodyBytes,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Endpoint returns the URL a request is sent to.
func (c *Client) Endpoint(req poller.Request) string {
	return c.base.ResolveReference(&url.URL{Path: TailPath, RawQuery: req.Query().Encode()}).String()
}

// Fetch performs one poll. Transport and HTTP status failures are returned as
// *TransportError; malformed bodies as *poller.DecodeError.
func (c *Client) Fetch(ctx context.Context, q poller.Request) (poller.Response, error) {
	if c == nil {
		return poller.Response{}, &TransportError{Op: "send", Err: ErrAPIUnavailable}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint(q), nil)
	if err != nil {
		return poller.Response{}, &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerKeyID, c.creds.KeyID)
	req.Header.Set(headerKeySecret, c.creds.Secret)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return poller.Response{}, &TransportError{Op: "send", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return poller.Response{}, statusError(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return poller.Response{}, &TransportError{Op: "read body", StatusCode: resp.StatusCode, Err: err}
	}
	if int64(len(body)) > c.maxBody {
		return poller.Response{}, &TransportError{
			Op:         "read body",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w of %d bytes", ErrBodyTooLarge, c.maxBody),
		}
	}
	return poller.Decode(body)
}

func statusError(resp *http.Response) *TransportError {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
	tErr := &TransportError{
		Op:         "status",
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(snippet)),
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		tErr.Err = ErrUnauthorized
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		tErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	}
	return tErr
}

func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// TransportError reports a poll that produced no decodable body.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	RetryAfter time.Duration
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString("tail request")
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Body != "" {
		fmt.Fprintf(&b, " (%s)", e.Body)
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err is or wraps a TransportError.
func IsTransportError(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}

// IsUnauthorized reports a credential rejection. Retrying with the same key
// pair cannot succeed.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// RetryAfter returns the server-requested delay carried by err, if any.
func RetryAfter(err error) time.Duration {
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return tErr.RetryAfter
	}
	return 0
}

// IsAPIUnavailable reports connection-level failures: refused connections,
// DNS errors, and a nil client.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAPIUnavailable) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
