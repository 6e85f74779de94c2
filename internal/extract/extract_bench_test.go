package extract

import (
	"strings"
	"testing"

	"github.com/hyperifyio/contentcore/internal/strategy"
)

func BenchmarkExtractors(b *testing.B) {
	css, _ := strategy.NewCSSJSON(map[string]string{"title": "h2", "content": "main p"})
	extractors := map[string]Extractor{
		"heuristic": HeuristicExtractor{},
		"trek":      TrekExtractor{},
		"css_json":  ForStrategy(css),
		"regex":     ForStrategy(strategy.Select("https://news.ycombinator.com/")),
	}
	pages := map[string][]byte{
		"small": []byte("<html><head><title>t</title></head><body><main><p>a</p></main></body></html>"),
		"large": makePage(200, 200),
	}
	for pname, page := range pages {
		for ename, e := range extractors {
			b.Run(ename+"/"+pname, func(b *testing.B) {
				for i := 0; i < b.N; i++ {
					_, _ = e.Extract(page, "https://example.com/")
				}
			})
		}
	}
}

func makePage(sections, items int) []byte {
	var b strings.Builder
	b.WriteString("<html><head><title>demo</title></head><body><main>")
	for i := 0; i < sections; i++ {
		b.WriteString("<h2>Heading</h2><p>" + sampleText + "</p>")
	}
	b.WriteString("<ul>")
	for i := 0; i < items; i++ {
		b.WriteString("<li>" + sampleText + "</li>")
	}
	b.WriteString("</ul></main></body></html>")
	return []byte(b.String())
}

const sampleText = "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua."
