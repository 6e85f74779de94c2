package chunking

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// markdownBlocks splits src along its top-level markdown blocks. Each block
// runs from the start of its first line to the start of the next block, so
// blank lines and thematic breaks stay with the preceding block. Headings
// drive the section path.
func markdownBlocks(src string) []block {
	source := []byte(src)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var (
		starts []int
		paths  []string
		trail  []string
	)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		pos, ok := blockStart(n, source)
		if !ok {
			continue
		}
		if h, isHeading := n.(*ast.Heading); isHeading {
			keep := h.Level - 1
			if keep > len(trail) {
				keep = len(trail)
			}
			trail = append(trail[:keep], headingTitle(h, source))
		}
		if len(starts) > 0 && pos <= starts[len(starts)-1] {
			continue
		}
		starts = append(starts, pos)
		paths = append(paths, strings.Join(trail, " > "))
	}

	blocks := make([]block, 0, len(starts))
	for i := range starts {
		start, end := starts[i], len(src)
		if i == 0 {
			start = 0
		}
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		t := strings.TrimSpace(src[start:end])
		if t == "" {
			continue
		}
		blocks = append(blocks, block{start: start, end: end, text: t, path: paths[i]})
	}
	return blocks
}

// blockStart finds the offset of the line where n begins. Fenced code
// starts one line above its first content line, on the fence.
func blockStart(n ast.Node, source []byte) (int, bool) {
	if fc, ok := n.(*ast.FencedCodeBlock); ok {
		if fc.Info != nil {
			return lineStart(source, fc.Info.Segment.Start), true
		}
		if fc.Lines().Len() > 0 {
			first := lineStart(source, fc.Lines().At(0).Start)
			if first > 0 {
				return lineStart(source, first-1), true
			}
			return 0, true
		}
		return 0, false
	}
	best := -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		pos := -1
		if c.Type() == ast.TypeBlock {
			if lines := c.Lines(); lines != nil && lines.Len() > 0 {
				pos = lines.At(0).Start
			}
		} else if t, ok := c.(*ast.Text); ok {
			pos = t.Segment.Start
		}
		if pos >= 0 && (best < 0 || pos < best) {
			best = pos
		}
		return ast.WalkContinue, nil
	})
	if best < 0 {
		return 0, false
	}
	return lineStart(source, best), true
}

func lineStart(source []byte, pos int) int {
	if pos > len(source) {
		pos = len(source)
	}
	return bytes.LastIndexByte(source[:pos], '\n') + 1
}

func headingTitle(h *ast.Heading, source []byte) string {
	var b strings.Builder
	lines := h.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return strings.TrimSpace(b.String())
}
