// Package render talks to the external headless rendering service.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	cerrors "github.com/hyperifyio/contentcore/internal/errors"
	"github.com/hyperifyio/contentcore/internal/fetch"
)

// ErrNoEndpoint means no headless service is configured.
var ErrNoEndpoint = errors.New("render: no endpoint configured")

const maxRenderedBytes = 20 << 20

// Request asks the service to load URL, optionally waiting for a selector and
// scrolling a number of times before capturing the DOM.
type Request struct {
	URL         string `json:"url"`
	WaitFor     string `json:"wait_for,omitempty"`
	ScrollSteps int    `json:"scroll_steps,omitempty"`
}

// Client posts render requests to {Endpoint}/render. Requests are paced by a
// token bucket and retried on transient failures.
type Client struct {
	Endpoint    string
	HTTPClient  *http.Client
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
	limiter     *rate.Limiter
}

// New returns a client for endpoint. rps <= 0 disables pacing.
func New(endpoint string, rps float64, timeout time.Duration) *Client {
	c := &Client{
		Endpoint:    strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		Timeout:     timeout,
		MaxAttempts: 3,
		Backoff:     250 * time.Millisecond,
	}
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return c
}

// Render returns the rendered HTML of req.URL. The service may answer with a
// JSON object carrying an "html" field or with the markup itself.
func (c *Client) Render(ctx context.Context, req Request) ([]byte, error) {
	if c == nil || c.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if err := fetch.CheckURL(c.Endpoint); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrInvalidConfig, "render.url", "invalid render endpoint", err)
	}
	if err := fetch.CheckURL(req.URL); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrRenderFailed, "url", "refusing to render", err)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		html, err := c.tryOnce(ctx, payload)
		if err == nil {
			return html, nil
		}
		lastErr = err
		if !fetch.IsTransient(err) || i == attempts-1 || ctx.Err() != nil {
			break
		}
		log.Warn().Err(err).Str("url", req.URL).Int("attempt", i+1).Msg("render retry")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * c.Backoff):
		}
	}
	return nil, cerrors.Wrap(cerrors.ErrRenderFailed, "url", "headless render failed for "+req.URL, lastErr)
}

func (c *Client) tryOnce(ctx context.Context, payload []byte) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/render", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &fetch.StatusError{Code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRenderedBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt == "application/json" {
		var out struct {
			HTML string `json:"html"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decode render response: %w", err)
		}
		body = []byte(out.HTML)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty render response")
	}
	return body, nil
}
