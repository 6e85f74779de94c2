package chunking

import (
	"math"
	"sort"
	"unicode/utf8"

	"github.com/hyperifyio/contentcore/internal/budget"
)

const (
	topicSentenceWords = 20
	maxSmoothingPasses = 5
	minDepth           = 0.05
	topicKeywords      = 5
)

type topicChunker struct {
	window    int
	passes    int
	threshold float64
	tokenMax  int
}

func newTopic(cfg Config, m Topic) *topicChunker {
	c := &topicChunker{window: m.WindowSize, passes: m.SmoothingPasses, threshold: m.SimilarityThreshold, tokenMax: cfg.TokenMax}
	if c.window < 2 {
		c.window = 2
	}
	if c.passes < 0 {
		c.passes = 0
	}
	if c.passes > maxSmoothingPasses {
		c.passes = maxSmoothingPasses
	}
	return c
}

// Chunk compares term windows on both sides of every sentence gap and cuts
// at the deepest similarity valleys. Segments over the token budget are
// split again at sentence boundaries.
func (c *topicChunker) Chunk(text string) []Chunk {
	if isBlank(text) {
		return nil
	}
	sents := splitSentences(text, topicSentenceWords)
	folder := newTermFolder()
	terms := make([][]string, len(sents))
	tokens := make([]int, len(sents))
	for i, s := range sents {
		sentence := text[s.start:s.end]
		for _, w := range budget.Words(sentence) {
			if t := folder.term(sentence[w.Start:w.End]); t != "" {
				terms[i] = append(terms[i], t)
			}
			tokens[i]++
		}
	}
	vecs, vocab := buildVectors(terms)

	cuts := c.boundaries(vecs)
	var pieces []piece
	prev := 0
	for _, b := range append(cuts, len(sents)) {
		for _, g := range packSentences(tokens, prev, b, c.tokenMax) {
			pieces = append(pieces, c.piece(text, sents, tokens, vecs, vocab, g[0], g[1]))
		}
		prev = b
	}
	return finalize(text, KindTopic, pieces)
}

// boundaries returns the sentence indexes that open a new segment, in
// ascending order.
func (c *topicChunker) boundaries(vecs []termVec) []int {
	n := len(vecs)
	w := c.window
	if n < 2*w {
		return nil
	}
	// gap g sits between sentence g and g+1
	sims := make([]float64, n-1)
	for g := range sims {
		lo, hi := g+1-w, g+1+w
		if lo < 0 {
			lo = 0
		}
		if hi > n {
			hi = n
		}
		sims[g] = coherence(sumVectors(vecs[lo:g+1]), sumVectors(vecs[g+1:hi]))
	}
	sims = smooth(sims, c.passes)
	depth := depths(sims)

	var minima []int
	for g := range sims {
		if g > 0 && sims[g] > sims[g-1] {
			continue
		}
		if g+1 < len(sims) && sims[g] > sims[g+1] {
			continue
		}
		if depth[g] <= minDepth {
			continue
		}
		if c.threshold > 0 && sims[g] >= c.threshold {
			continue
		}
		minima = append(minima, g)
	}
	if len(minima) == 0 {
		return nil
	}

	mean, std := meanStd(depth)
	cutoff := mean + 0.08
	if std > 0.1 {
		cutoff = mean + 0.4*std
	}
	var picked []int
	for _, g := range minima {
		if depth[g] > cutoff {
			picked = append(picked, g)
		}
	}
	if len(picked) == 0 {
		ds := make([]float64, len(minima))
		for i, g := range minima {
			ds[i] = depth[g]
		}
		sort.Float64s(ds)
		p75 := ds[(len(ds)*3)/4]
		for _, g := range minima {
			if depth[g] >= p75 {
				picked = append(picked, g)
			}
		}
	}

	sort.SliceStable(picked, func(i, j int) bool {
		if depth[picked[i]] != depth[picked[j]] {
			return depth[picked[i]] > depth[picked[j]]
		}
		return picked[i] < picked[j]
	})
	var cuts []int
	for _, g := range picked {
		b := g + 1
		if b < w || n-b < w {
			continue
		}
		ok := true
		for _, other := range cuts {
			if abs(b-other) < 2*w {
				ok = false
				break
			}
		}
		if ok {
			cuts = append(cuts, b)
		}
	}
	sort.Ints(cuts)
	return cuts
}

func (c *topicChunker) piece(text string, sents []span, tokens []int, vecs []termVec, vocab []string, from, to int) piece {
	start, end := sents[from].start, sents[to-1].end
	content := text[start:end]
	sum := 0
	for _, t := range tokens[from:to] {
		sum += t
	}
	keywords, hits := topTerms(sumVectors(vecs[from:to]), vocab, topicKeywords)
	complete := endsSentence(content)

	q := 0.5 + math.Min(float64(utf8.RuneCountInString(content))/1000, 1)*0.2
	if sum > 0 {
		q += math.Min(hits/float64(sum)*10, 0.3)
	}
	if to-from >= 3 {
		q += 0.2
	}
	if q > 1 {
		q = 1
	}
	return piece{start: start, end: end, content: content, tokens: sum, meta: Metadata{
		ChunkType:            "topic",
		TopicKeywords:        keywords,
		HasCompleteSentences: complete,
		QualityScore:         q,
	}}
}

// topTerms returns up to k most frequent terms, ties broken alphabetically,
// and the total frequency of those terms.
func topTerms(v termVec, vocab []string, k int) ([]string, float64) {
	sorted := append(termVec(nil), v...)
	// ids follow alphabetical order, so ties break on id
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].w != sorted[j].w {
			return sorted[i].w > sorted[j].w
		}
		return sorted[i].id < sorted[j].id
	})
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	var hits float64
	out := make([]string, 0, len(sorted))
	for _, t := range sorted {
		out = append(out, vocab[t.id])
		hits += t.w
	}
	return out, hits
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
