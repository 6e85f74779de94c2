package render

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	cerrors "github.com/hyperifyio/contentcore/internal/errors"
)

func TestRender_PostsRequestAndDecodesJSON(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/render" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"html":"<html><body>rendered</body></html>"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", 0, time.Second)
	html, err := c.Render(context.Background(), Request{URL: "https://example.com/app", WaitFor: "#root", ScrollSteps: 2})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(html) != "<html><body>rendered</body></html>" {
		t.Fatalf("unexpected html %q", html)
	}
	if got.URL != "https://example.com/app" || got.WaitFor != "#root" || got.ScrollSteps != 2 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestRender_AcceptsRawHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<p>raw</p>"))
	}))
	defer srv.Close()

	html, err := New(srv.URL, 0, time.Second).Render(context.Background(), Request{URL: "http://example.com"})
	if err != nil || string(html) != "<p>raw</p>" {
		t.Fatalf("unexpected result %q, %v", html, err)
	}
}

func TestRender_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("<p>third time</p>"))
	}))
	defer srv.Close()

	c := New(srv.URL, 0, time.Second)
	c.Backoff = time.Millisecond
	if _, err := c.Render(context.Background(), Request{URL: "http://example.com"}); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRender_FailsWithCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := New(srv.URL, 0, time.Second).Render(context.Background(), Request{URL: "http://example.com"})
	if !cerrors.Is(err, cerrors.ErrRenderFailed) {
		t.Fatalf("expected RENDER_FAILED, got %v", err)
	}
}

func TestRender_RejectsBadInput(t *testing.T) {
	if _, err := New("", 0, 0).Render(context.Background(), Request{URL: "http://example.com"}); !errors.Is(err, ErrNoEndpoint) {
		t.Fatalf("expected ErrNoEndpoint, got %v", err)
	}
	var nilClient *Client
	if _, err := nilClient.Render(context.Background(), Request{}); !errors.Is(err, ErrNoEndpoint) {
		t.Fatalf("expected ErrNoEndpoint for nil client, got %v", err)
	}
	if _, err := New("http://render.local", 0, 0).Render(context.Background(), Request{URL: "javascript:alert(1)"}); err == nil {
		t.Fatalf("expected scheme rejection")
	}
	if _, err := New("ftp://render.local", 0, 0).Render(context.Background(), Request{URL: "http://example.com"}); !cerrors.Is(err, cerrors.ErrInvalidConfig) {
		t.Fatalf("expected invalid endpoint, got %v", err)
	}
}

func TestRender_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<p>ok</p>"))
	}))
	defer srv.Close()

	c := New(srv.URL, 20, time.Second)
	start := time.Now()
	for i := 0; i < 41; i++ {
		if _, err := c.Render(context.Background(), Request{URL: "http://example.com"}); err != nil {
			t.Fatal(err)
		}
	}
	// 20 burst tokens, then 21 more at 20/s
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Fatalf("limiter did not pace requests: %v", elapsed)
	}
}
