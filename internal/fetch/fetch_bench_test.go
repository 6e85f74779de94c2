package fetch

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"
)

// Benchmark the probe client under different concurrency caps.
func BenchmarkClient_Get(b *testing.B) {
	ts := httptest.NewServer(htmlHandler("<html><head><title>ok</title></head><body><main><p>hello</p></main></body></html>"))
	defer ts.Close()

	for _, conc := range []int{0, 1, 8} {
		b.Run(fmt.Sprintf("conc=%d", conc), func(b *testing.B) {
			cli := &Client{HTTPClient: ts.Client(), MaxConcurrent: conc, PerRequestTimeout: 2 * time.Second}
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					if _, _, err := cli.Get(context.Background(), ts.URL); err != nil {
						b.Errorf("fetch failed: %v", err)
					}
				}
			})
		})
	}
}
