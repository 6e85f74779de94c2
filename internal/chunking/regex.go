package chunking

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperifyio/contentcore/internal/budget"
	cerrors "github.com/hyperifyio/contentcore/internal/errors"
)

type regexChunker struct {
	re       *regexp.Regexp
	min      int
	tokenMax int
}

func newRegex(m Regex, tokenMax int) (*regexChunker, error) {
	if m.Pattern == "" {
		return nil, cerrors.NewInvalidConfig("mode.pattern", "regex pattern is empty")
	}
	re, err := regexp.Compile(m.Pattern)
	if err != nil {
		return nil, cerrors.NewInvalidPattern("mode.pattern", m.Pattern, err)
	}
	min := m.MinChunkSize
	if min < 0 {
		min = 0
	}
	return &regexChunker{re: re, min: min, tokenMax: tokenMax}, nil
}

// Chunk splits on the pattern, then merges any piece shorter than min runes
// into the following one. A short trailing piece joins its predecessor.
func (c *regexChunker) Chunk(text string) []Chunk {
	if isBlank(text) {
		return nil
	}
	segs := c.segments(text)
	if len(segs) == 0 {
		s := trimSpan(text, span{0, len(text)})
		segs = []span{s}
	}

	var merged []span
	cur, curLen, open := span{}, 0, false
	for _, s := range segs {
		if !open {
			cur, curLen, open = s, 0, true
		} else {
			cur.end = s.end
		}
		curLen += utf8.RuneCountInString(text[s.start:s.end])
		if curLen >= c.min {
			merged = append(merged, cur)
			open = false
		}
	}
	if open {
		if len(merged) > 0 {
			merged[len(merged)-1].end = cur.end
		} else {
			merged = append(merged, cur)
		}
	}

	pieces := make([]piece, 0, len(merged))
	for _, s := range merged {
		content := text[s.start:s.end]
		tokens := budget.CountTokens(content)
		complete := endsSentence(content)
		pieces = append(pieces, piece{
			start:   s.start,
			end:     s.end,
			content: content,
			tokens:  tokens,
			meta: Metadata{
				ChunkType:            "regex",
				HasCompleteSentences: complete,
				QualityScore:         qualityScore(tokens, c.tokenMax, complete),
			},
		})
	}
	return finalize(text, KindRegex, pieces)
}

// segments returns the trimmed, non-blank text between pattern matches.
func (c *regexChunker) segments(text string) []span {
	var out []span
	prev := 0
	add := func(s span) {
		s = trimSpan(text, s)
		if s.end > s.start {
			out = append(out, s)
		}
	}
	for _, loc := range c.re.FindAllStringIndex(text, -1) {
		add(span{prev, loc[0]})
		prev = loc[1]
	}
	add(span{prev, len(text)})
	return out
}

func trimSpan(text string, s span) span {
	seg := text[s.start:s.end]
	left := len(seg) - len(strings.TrimLeftFunc(seg, unicode.IsSpace))
	right := len(strings.TrimRightFunc(seg, unicode.IsSpace))
	if right <= left {
		return span{s.start, s.start}
	}
	return span{s.start + left, s.start + right}
}
