package chunking

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hyperifyio/contentcore/internal/budget"
)

type htmlChunker struct {
	mode     HTMLAware
	tokenMax int
}

// block is one structural unit of the source. Blocks tile the input: each
// starts where the previous one ended.
type block struct {
	start, end int
	text       string
	path       string
	tokens     int
}

// Chunk splits markup along block elements. Input that does not start with a
// tag is treated as markdown and split along its top-level blocks. Offsets
// span the source blocks of a chunk; a piece cut from an oversize block gets
// its own source offsets when its text appears verbatim in the block's
// markup, and the whole block's offsets otherwise (entities, collapsed
// whitespace).
func (c *htmlChunker) Chunk(input string) []Chunk {
	if isBlank(input) {
		return nil
	}
	var blocks []block
	if looksLikeMarkup(input) {
		blocks = htmlBlocks(input)
	} else {
		blocks = markdownBlocks(input)
	}
	if len(blocks) == 0 {
		s := trimSpan(input, span{0, len(input)})
		content := input[s.start:s.end]
		blocks = []block{{start: s.start, end: s.end, text: content}}
	}
	for i := range blocks {
		blocks[i].tokens = budget.CountTokens(blocks[i].text)
	}

	var (
		pieces []piece
		cur    []block
		sum    int
	)
	flush := func() {
		if len(cur) > 0 {
			pieces = append(pieces, c.piece(input, cur, sum))
		}
		cur, sum = nil, 0
	}
	for _, b := range blocks {
		if c.mode.PreserveStructure && len(cur) > 0 && cur[0].path != b.path {
			flush()
		}
		if len(cur) > 0 && sum+b.tokens > c.tokenMax {
			flush()
		}
		if b.tokens > c.tokenMax && !c.mode.PreserveBlocks {
			flush()
			pieces = append(pieces, c.splitBlock(input, b)...)
			continue
		}
		cur = append(cur, b)
		sum += b.tokens
	}
	flush()
	return finalize(input, KindHTMLAware, pieces)
}

func (c *htmlChunker) piece(input string, blocks []block, tokens int) piece {
	start, end := blocks[0].start, blocks[len(blocks)-1].end
	var content, kind string
	if c.mode.PreserveBlocks {
		s := trimSpan(input, span{start, end})
		start, end = s.start, s.end
		content = input[start:end]
		kind = "block"
	} else {
		texts := make([]string, len(blocks))
		for i, b := range blocks {
			texts[i] = b.text
		}
		content = strings.Join(texts, "\n\n")
		kind = "text"
	}
	complete := endsSentence(blocks[len(blocks)-1].text)
	meta := Metadata{
		ChunkType:            kind,
		HasCompleteSentences: complete,
		QualityScore:         qualityScore(tokens, c.tokenMax, complete),
	}
	if c.mode.PreserveStructure {
		meta.SectionPath = blocks[0].path
	}
	return piece{start: start, end: end, content: content, tokens: tokens, meta: meta}
}

// splitBlock cuts an oversize text block at sentence boundaries. Each piece
// is located in the block's source, in order, falling back to the block
// range when its text was rewritten by extraction.
func (c *htmlChunker) splitBlock(input string, b block) []piece {
	src := input[b.start:b.end]
	cursor := 0
	sents := splitSentences(b.text, c.tokenMax)
	tokens := make([]int, len(sents))
	for i, s := range sents {
		tokens[i] = budget.CountTokens(b.text[s.start:s.end])
	}
	var out []piece
	for _, g := range packSentences(tokens, 0, len(sents), c.tokenMax) {
		content := b.text[sents[g[0]].start:sents[g[1]-1].end]
		sum := 0
		for _, t := range tokens[g[0]:g[1]] {
			sum += t
		}
		complete := endsSentence(content)
		meta := Metadata{
			ChunkType:            "text",
			HasCompleteSentences: complete,
			QualityScore:         qualityScore(sum, c.tokenMax, complete),
		}
		if c.mode.PreserveStructure {
			meta.SectionPath = b.path
		}
		start, end := b.start, b.end
		if i := strings.Index(src[cursor:], content); i >= 0 {
			start = b.start + cursor + i
			end = start + len(content)
			cursor += i + len(content)
		}
		out = append(out, piece{start: start, end: end, content: content, tokens: sum, meta: meta})
	}
	return out
}

func looksLikeMarkup(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "<")
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Li: true, atom.Ul: true,
	atom.Ol: true, atom.Dl: true, atom.Dt: true, atom.Dd: true, atom.Pre: true,
	atom.Blockquote: true, atom.Table: true, atom.Tr: true, atom.Td: true, atom.Th: true,
	atom.Figure: true, atom.Figcaption: true, atom.Hr: true, atom.Form: true,
	atom.Article: true, atom.Section: true, atom.Main: true, atom.Header: true,
	atom.Footer: true, atom.Nav: true, atom.Aside: true, atom.Body: true,
	atom.Address: true, atom.Details: true, atom.Summary: true,
}

var sectioningElements = map[atom.Atom]bool{
	atom.Article: true, atom.Section: true, atom.Main: true, atom.Header: true,
	atom.Footer: true, atom.Nav: true, atom.Aside: true,
}

var hiddenElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true, atom.Template: true, atom.Title: true,
}

type section struct {
	tag   atom.Atom
	label string
}

// htmlBlocks tokenizes src and cuts it before every block start tag and
// after every block end tag. Cuts that would produce a block without text
// are skipped so the markup folds into the next block.
func htmlBlocks(src string) []block {
	z := html.NewTokenizer(strings.NewReader(src))
	var (
		blocks   []block
		stack    []section
		text     strings.Builder
		segStart int
		segPath  string
		offset   int
		hidden   int
		hasText  bool
	)
	cut := func(at int) {
		if !hasText {
			return
		}
		t := strings.Join(strings.Fields(text.String()), " ")
		blocks = append(blocks, block{start: segStart, end: at, text: t, path: segPath})
		segStart = at
		text.Reset()
		hasText = false
	}
	pathOf := func() string {
		labels := make([]string, len(stack))
		for i, s := range stack {
			labels[i] = s.label
		}
		return strings.Join(labels, " > ")
	}
	for {
		tt := z.Next()
		tokStart := offset
		offset += len(z.Raw())
		switch tt {
		case html.ErrorToken:
			cut(len(src))
			if len(blocks) > 0 {
				blocks[len(blocks)-1].end = len(src)
			}
			return blocks
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			a := atom.Lookup(name)
			if hiddenElements[a] {
				if tt == html.StartTagToken {
					hidden++
				}
				continue
			}
			if a == atom.Br {
				text.WriteByte(' ')
				continue
			}
			if blockElements[a] {
				cut(tokStart)
			}
			if sectioningElements[a] && tt == html.StartTagToken {
				label := string(name)
				for hasAttr {
					var k, v []byte
					k, v, hasAttr = z.TagAttr()
					if string(k) == "id" && len(v) > 0 {
						label += "#" + string(v)
					}
				}
				stack = append(stack, section{tag: a, label: label})
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if hiddenElements[a] {
				if hidden > 0 {
					hidden--
				}
				continue
			}
			if blockElements[a] {
				cut(offset)
			}
			if sectioningElements[a] {
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i].tag == a {
						stack = stack[:i]
						break
					}
				}
			}
		case html.TextToken:
			if hidden > 0 {
				continue
			}
			t := z.Text()
			if !hasText && len(bytes.TrimSpace(t)) > 0 {
				segPath = pathOf()
				hasText = true
			}
			text.Write(t)
		}
	}
}
