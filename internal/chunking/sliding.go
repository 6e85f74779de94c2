package chunking

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperifyio/contentcore/internal/budget"
	cerrors "github.com/hyperifyio/contentcore/internal/errors"
)

type slidingChunker struct {
	window            int
	overlap           int
	preserveSentences bool
	kind              Kind
}

func newSliding(cfg Config, m Sliding) (*slidingChunker, error) {
	window, overlap := m.Window, m.Overlap
	if window == 0 {
		window, overlap = cfg.TokenMax, cfg.Overlap
	}
	if window < 0 {
		return nil, cerrors.NewInvalidConfig("mode.window", "window must be positive")
	}
	if overlap < 0 {
		overlap = 0
	}
	return &slidingChunker{window: window, overlap: overlap, preserveSentences: cfg.PreserveSentences, kind: KindSliding}, nil
}

// Chunk walks word windows. When overlap >= window the advance is clamped
// to one word, and the walk stops once a window reaches the last word, so no
// window is emitted twice.
func (c *slidingChunker) Chunk(text string) []Chunk {
	if isBlank(text) {
		return nil
	}
	words := budget.Words(text)
	n := len(words)
	var pieces []piece
	for start := 0; start < n; {
		end := start + c.window
		if end > n {
			end = n
		}
		if c.preserveSentences && end < n {
			end = sentenceCut(text, words, start, end)
		}
		content := text[words[start].Start:words[end-1].End]
		complete := endsSentence(content)
		pieces = append(pieces, piece{
			start:   words[start].Start,
			end:     words[end-1].End,
			content: content,
			tokens:  end - start,
			meta: Metadata{
				ChunkType:            "sliding",
				HasCompleteSentences: complete,
				QualityScore:         qualityScore(end-start, c.window, complete),
			},
		})
		if end == n {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return finalize(text, c.kind, pieces)
}

// sentenceCut pulls end back to the last sentence-final word in the second
// half of the window, if there is one.
func sentenceCut(text string, words []budget.Span, start, end int) int {
	floor := start + (end-start)/2
	for k := end - 1; k >= floor && k > start; k-- {
		if wordEndsSentence(text[words[k].Start:words[k].End]) {
			return k + 1
		}
	}
	return end
}

func wordEndsSentence(w string) bool {
	w = strings.TrimRight(w, "\"'”’)]»")
	if w == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(w)
	return isTerminal(r)
}
