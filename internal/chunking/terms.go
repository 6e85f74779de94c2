package chunking

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var stopwords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`
		about above after again against all also among and any are aren't because been
		before being below between both but can cannot could did does doing down during
		each either else even ever every few for from further had has have having her here
		hers herself him himself his how however into its itself just let like may might
		more most much must myself never nor not now off once one only other ought our ours
		ourselves out over own same shall she should since some still such than that the
		their theirs them themselves then there these they this those through thus too under
		until upon very via was were what when where whether which while who whom whose why
		will with within without would yet you your yours yourself yourselves`) {
		stopwords[w] = true
	}
}

// termFolder normalizes words into comparable terms. It is not safe for
// concurrent use; each Chunk call builds its own.
type termFolder struct {
	caser cases.Caser
}

func newTermFolder() *termFolder {
	return &termFolder{caser: cases.Fold()}
}

// term returns the folded form of w stripped of surrounding punctuation, or
// "" when the word is too short or a stopword.
func (f *termFolder) term(w string) string {
	w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsNumber(r) })
	if w == "" {
		return ""
	}
	if isASCII(w) {
		w = strings.ToLower(w)
	} else {
		w = f.caser.String(norm.NFKC.String(w))
	}
	if utf8.RuneCountInString(w) <= 2 || stopwords[w] {
		return ""
	}
	return w
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// maxVocabulary bounds the term space. Larger vocabularies drop terms seen
// only once.
const maxVocabulary = 50

// termWeight is one entry of a sparse term vector sorted by id.
type termWeight struct {
	id int
	w  float64
}

type termVec []termWeight

// buildVectors turns per-sentence term lists into sparse vectors over a
// vocabulary whose ids follow the sorted term order.
func buildVectors(sentences [][]string) ([]termVec, []string) {
	counts := map[string]int{}
	for _, terms := range sentences {
		for _, t := range terms {
			counts[t]++
		}
	}
	vocab := make([]string, 0, len(counts))
	for t, n := range counts {
		if len(counts) > maxVocabulary && n < 2 {
			continue
		}
		vocab = append(vocab, t)
	}
	sort.Strings(vocab)
	ids := make(map[string]int, len(vocab))
	for i, t := range vocab {
		ids[t] = i
	}
	vecs := make([]termVec, len(sentences))
	for i, terms := range sentences {
		var idList []int
		for _, t := range terms {
			if id, ok := ids[t]; ok {
				idList = append(idList, id)
			}
		}
		vecs[i] = vectorOf(idList)
	}
	return vecs, vocab
}

func vectorOf(ids []int) termVec {
	if len(ids) == 0 {
		return nil
	}
	sort.Ints(ids)
	var v termVec
	for _, id := range ids {
		if n := len(v); n > 0 && v[n-1].id == id {
			v[n-1].w++
			continue
		}
		v = append(v, termWeight{id: id, w: 1})
	}
	return v
}

// sumVectors merges vectors into one sparse vector.
func sumVectors(vs []termVec) termVec {
	var ids []int
	var ws []float64
	for _, v := range vs {
		for _, tw := range v {
			ids = append(ids, tw.id)
			ws = append(ws, tw.w)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	order := make([]int, len(ids))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return ids[order[a]] < ids[order[b]] })
	var out termVec
	for _, k := range order {
		if n := len(out); n > 0 && out[n-1].id == ids[k] {
			out[n-1].w += ws[k]
			continue
		}
		out = append(out, termWeight{id: ids[k], w: ws[k]})
	}
	return out
}
