package chunking

import "github.com/hyperifyio/contentcore/internal/budget"

type sentenceChunker struct {
	max      int
	tokenMax int
}

// Chunk groups up to max sentences. Run-on text without punctuation is cut
// every tokenMax words so no single sentence exceeds the budget.
func (c *sentenceChunker) Chunk(text string) []Chunk {
	if isBlank(text) {
		return nil
	}
	sents := splitSentences(text, c.tokenMax)
	pieces := make([]piece, 0, len(sents)/c.max+1)
	for i := 0; i < len(sents); i += c.max {
		j := i + c.max
		if j > len(sents) {
			j = len(sents)
		}
		start, end := sents[i].start, sents[j-1].end
		content := text[start:end]
		complete := endsSentence(content)
		pieces = append(pieces, piece{
			start:   start,
			end:     end,
			content: content,
			tokens:  budget.CountTokens(content),
			meta: Metadata{
				ChunkType:            "sentence",
				HasCompleteSentences: complete,
				QualityScore:         qualityScore(j-i, c.max, complete),
			},
		})
	}
	return finalize(text, KindSentence, pieces)
}

// packSentences groups sentences [from, to) so that each group stays within
// tokenMax tokens. A sentence larger than the budget forms its own group.
func packSentences(tokens []int, from, to, tokenMax int) [][2]int {
	var groups [][2]int
	start, sum := from, 0
	for i := from; i < to; i++ {
		if i > start && sum+tokens[i] > tokenMax {
			groups = append(groups, [2]int{start, i})
			start, sum = i, 0
		}
		sum += tokens[i]
	}
	if start < to {
		groups = append(groups, [2]int{start, to})
	}
	return groups
}
