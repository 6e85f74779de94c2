// Package fetch performs the raw HTTP probe used when the gate asks for a
// cheap look at a page before committing to a headless render.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxBodyBytes caps a probe body when Client.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 10 << 20

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("unexpected status: %d", e.Code) }

// ErrUnsupportedScheme rejects anything but http and https.
var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// ErrUnsupportedContentType rejects non-HTML probe responses.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// ErrDisallowed is returned when the robots policy forbids the URL.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Policy decides whether a URL may be fetched at all.
type Policy interface {
	Allowed(ctx context.Context, rawURL string) (bool, error)
}

// Client issues GET probes with a per-request timeout, bounded retries on
// transient failures and an optional cap on concurrent requests.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the first attempt. Minimum 1.
	MaxAttempts       int
	PerRequestTimeout time.Duration
	// RedirectMaxHops defaults to 5.
	RedirectMaxHops int
	// MaxConcurrent of zero means unlimited.
	MaxConcurrent int
	MaxBodyBytes  int64
	// Backoff is the base delay between attempts, multiplied by the attempt
	// number. Defaults to 200ms.
	Backoff time.Duration
	// Robots, when set, is consulted once per Get before any attempt.
	Robots Policy

	semOnce sync.Once
	sem     *semaphore.Weighted
}

// Get fetches rawURL and returns the body and content type. Only HTML
// responses are accepted.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := CheckURL(rawURL); err != nil {
		return nil, "", err
	}
	if c.Robots != nil {
		ok, err := c.Robots.Allowed(ctx, rawURL)
		if err != nil {
			return nil, "", fmt.Errorf("robots: %w", err)
		}
		if !ok {
			return nil, "", fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
		}
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		body, ct, err := c.tryOnce(ctx, rawURL)
		if err == nil {
			return body, ct, nil
		}
		lastErr = err
		if !IsTransient(err) || i == attempts-1 {
			break
		}
		log.Debug().Err(err).Str("url", rawURL).Int("attempt", i+1).Msg("probe retry")
		if err := sleep(ctx, time.Duration(i+1)*c.backoff()); err != nil {
			return nil, "", err
		}
	}
	return nil, "", lastErr
}

func (c *Client) tryOnce(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, "", err
	}
	defer c.release()

	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.PerRequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("new request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.1")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &StatusError{Code: resp.StatusCode}
	}
	ct := resp.Header.Get("Content-Type")
	if !IsHTMLContentType(ct) {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedContentType, ct)
	}
	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return b, ct, nil
}

func (c *Client) httpClient() *http.Client {
	base := http.Client{}
	if c.HTTPClient != nil {
		base = *c.HTTPClient
	}
	base.CheckRedirect = c.checkRedirect
	return &base
}

func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	if len(via) >= max {
		return errors.New("too many redirects")
	}
	if !isHTTPScheme(req.URL) {
		return fmt.Errorf("redirect: %w", ErrUnsupportedScheme)
	}
	return nil
}

func (c *Client) backoff() time.Duration {
	if c.Backoff > 0 {
		return c.Backoff
	}
	return 200 * time.Millisecond
}

func (c *Client) acquire(ctx context.Context) error {
	if c.MaxConcurrent <= 0 {
		return nil
	}
	c.semOnce.Do(func() { c.sem = semaphore.NewWeighted(int64(c.MaxConcurrent)) })
	return c.sem.Acquire(ctx, 1)
}

func (c *Client) release() {
	if c.sem != nil {
		c.sem.Release(1)
	}
}

// IsTransient reports whether a request may succeed when retried: 5xx
// responses, 429 and per-request timeouts.
func IsTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// CheckURL accepts absolute http and https URLs with a host.
func CheckURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if !isHTTPScheme(u) {
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", rawURL)
	}
	return nil
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return s == "http" || s == "https"
}

// IsHTMLContentType accepts text/html and application/xhtml+xml.
func IsHTMLContentType(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
