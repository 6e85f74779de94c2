package features

import (
	"strings"
	"testing"
)

func BenchmarkExtract(b *testing.B) {
	small := `<div id="root"></div><script src="react.js"></script>`
	medium := makePage(50)
	large := makePage(500)

	b.Run("small", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = Extract(small, "https://example.com")
		}
	})
	b.Run("medium", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = Extract(medium, "https://example.com")
		}
	})
	b.Run("large", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = Extract(large, "https://example.com")
		}
	})
}

func makePage(paras int) string {
	var sb strings.Builder
	sb.WriteString("<html><head><title>demo</title><script>var state = {};</script></head><body><main>")
	for i := 0; i < paras; i++ {
		sb.WriteString("<h2>Heading</h2><p>Lorem ipsum dolor sit amet, consectetur adipiscing elit.</p>")
	}
	sb.WriteString("</main></body></html>")
	return sb.String()
}
