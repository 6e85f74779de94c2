package chunking

import (
	"unicode/utf8"

	"github.com/hyperifyio/contentcore/internal/budget"
)

type fixedChunker struct {
	size     int
	byTokens bool
}

func (c *fixedChunker) Chunk(text string) []Chunk {
	if isBlank(text) {
		return nil
	}
	if c.byTokens {
		return finalize(text, KindFixed, c.byWords(text))
	}
	return finalize(text, KindFixed, c.byRunes(text))
}

func (c *fixedChunker) byWords(text string) []piece {
	words := budget.Words(text)
	pieces := make([]piece, 0, len(words)/c.size+1)
	for i := 0; i < len(words); i += c.size {
		j := i + c.size
		if j > len(words) {
			j = len(words)
		}
		pieces = append(pieces, c.piece(text, words[i].Start, words[j-1].End, j-i))
	}
	return pieces
}

// byRunes cuts every size runes. Slices are contiguous, so concatenating the
// chunks reproduces the input apart from whitespace-only slices.
func (c *fixedChunker) byRunes(text string) []piece {
	var pieces []piece
	start, count := 0, 0
	for i := range text {
		if count == c.size {
			pieces = append(pieces, c.piece(text, start, i, -1))
			start, count = i, 0
		}
		count++
	}
	if start < len(text) {
		pieces = append(pieces, c.piece(text, start, len(text), -1))
	}
	return pieces
}

func (c *fixedChunker) piece(text string, start, end, tokens int) piece {
	content := text[start:end]
	complete := endsSentence(content)
	fill := tokens
	if !c.byTokens {
		tokens = budget.CountTokens(content)
		fill = utf8.RuneCountInString(content)
	}
	return piece{
		start:   start,
		end:     end,
		content: content,
		tokens:  tokens,
		meta: Metadata{
			ChunkType:            "fixed",
			HasCompleteSentences: complete,
			QualityScore:         qualityScore(fill, c.size, complete),
		},
	}
}
