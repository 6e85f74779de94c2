package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is the text an extractor pulled from a page. Fields holds named
// values for structured strategies; Missing lists required fields that were
// not found.
type Document struct {
	Title   string            `json:"title,omitempty"`
	Text    string            `json:"text"`
	Fields  map[string]string `json:"fields,omitempty"`
	Missing []string          `json:"missing,omitempty"`
}

// FromHTML extracts readable text from the first <main>, then <article>,
// then <body>. Navigation, footers, asides and consent banners are dropped;
// block elements become line breaks and <pre> keeps its layout.
func FromHTML(input []byte) Document {
	root, err := html.Parse(bytes.NewReader(input))
	if err != nil || root == nil {
		return Document{}
	}
	doc := Document{Title: strings.TrimSpace(textOf(findFirst(root, atom.Title)))}
	content := findFirst(root, atom.Main)
	if content == nil {
		content = findFirst(root, atom.Article)
	}
	if content == nil {
		content = findFirst(root, atom.Body)
	}
	if content != nil {
		var w walker
		w.walk(content, false)
		doc.Text = normalizeWhitespace(w.b.String())
	}
	return doc
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for k := c.FirstChild; k != nil; k = k.NextSibling {
			visit(k)
		}
	}
	visit(n)
	return b.String()
}

var controlSpace = strings.NewReplacer("\t", " ", "\r", " ")

type walker struct {
	b strings.Builder
}

func (w *walker) walk(n *html.Node, pre bool) {
	switch n.Type {
	case html.TextNode:
		data := n.Data
		if !pre {
			data = controlSpace.Replace(data)
		}
		w.b.WriteString(data)
		return
	case html.ElementNode:
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.walk(c, pre)
		}
		return
	}

	if isBoilerplate(n) {
		return
	}
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Nav, atom.Footer, atom.Aside, atom.Iframe:
		return
	case atom.Pre, atom.Code:
		pre = true
	case atom.Br, atom.Hr:
		w.b.WriteByte('\n')
	}
	block := blockBreaks[n.DataAtom]
	if block > 0 && !w.atLineStart() {
		w.b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, pre)
	}
	for i := 0; i < block; i++ {
		w.b.WriteByte('\n')
	}
}

func (w *walker) atLineStart() bool {
	s := w.b.String()
	return s == "" || s[len(s)-1] == '\n'
}

// blockBreaks is the number of newlines written after each block element.
var blockBreaks = map[atom.Atom]int{
	atom.P: 2, atom.H1: 2, atom.H2: 2, atom.H3: 2, atom.H4: 2, atom.H5: 2, atom.H6: 2,
	atom.Blockquote: 2, atom.Table: 2, atom.Pre: 1, atom.Li: 1, atom.Ul: 1, atom.Ol: 1,
	atom.Tr: 1, atom.Div: 1, atom.Section: 1, atom.Figcaption: 1, atom.Dt: 1, atom.Dd: 1,
}

var boilerplateMarkers = []string{"cookie", "consent", "gdpr"}

// isBoilerplate reports whether the element is marked as a consent banner.
func isBoilerplate(n *html.Node) bool {
	for _, a := range n.Attr {
		key := strings.ToLower(a.Key)
		if key != "id" && key != "class" && key != "role" && key != "aria-label" && !strings.HasPrefix(key, "data-") {
			continue
		}
		val := strings.ToLower(a.Val)
		for _, m := range boilerplateMarkers {
			if strings.Contains(val, m) {
				return true
			}
		}
	}
	return false
}

// normalizeWhitespace trims every line, collapses runs of spaces and keeps
// at most one blank line in a row.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" && (len(out) == 0 || out[len(out)-1] == "") {
			continue
		}
		out = append(out, line)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
