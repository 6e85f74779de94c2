package app

import (
	"net/http"
	"testing"
	"time"
)

func TestNewHTTPClient_OwnTransport(t *testing.T) {
	c := newHTTPClient(3 * time.Second)
	if c.Timeout != 3*time.Second {
		t.Fatalf("timeout = %v", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", c.Transport)
	}
	if tr == http.DefaultTransport {
		t.Fatalf("transport should not be shared with the default client")
	}
	if newHTTPClient(0).Timeout <= 0 {
		t.Fatalf("zero timeout should get a default")
	}
}
