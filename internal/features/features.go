package features

import (
	"strings"
)

// ContentFeatures is the flat set of structural and lexical signals computed
// once per (html, url) pair.
type ContentFeatures struct {
	HTMLByteLen             uint64  `json:"html_byte_len"`
	VisibleTextCharLen      uint64  `json:"visible_text_char_len"`
	ParagraphCount          int     `json:"paragraph_count"`
	ArticleOrMainCount      int     `json:"article_or_main_count"`
	HeadingCount            int     `json:"heading_count"`
	ScriptByteLen           uint64  `json:"script_byte_len"`
	HasOpenGraph            bool    `json:"has_open_graph"`
	HasJSONLDArticle        bool    `json:"has_jsonld_article"`
	SPAMarkerCount          uint8   `json:"spa_marker_count"`
	HasReact                bool    `json:"has_react"`
	HasVue                  bool    `json:"has_vue"`
	HasAngular              bool    `json:"has_angular"`
	HasAntiScraping         bool    `json:"has_anti_scraping"`
	HasPlaceholderUI        bool    `json:"has_placeholder_ui"`
	HasMainContentStructure bool    `json:"has_main_content_structure"`
	ContentToMarkupRatio    float64 `json:"content_to_markup_ratio"`
	VisibleTextDensity      float64 `json:"visible_text_density"`
	DomainPrior             float64 `json:"domain_prior"`
}

// MaxSPAMarkers is the saturation point of SPAMarkerCount.
const MaxSPAMarkers = 4

// HasFramework reports whether any client-side framework was detected.
func (f ContentFeatures) HasFramework() bool {
	return f.HasReact || f.HasVue || f.HasAngular
}

// Extract computes ContentFeatures from raw markup and the page URL. It never
// fails: malformed markup or an unparseable URL degrade to low-signal values.
func Extract(html string, pageURL string) ContentFeatures {
	f := ContentFeatures{
		HTMLByteLen: uint64(len(html)),
		DomainPrior: DomainPrior(pageURL),
	}
	if len(html) == 0 {
		return f
	}
	lower := strings.ToLower(html)

	scan := scanText(lower)
	f.ScriptByteLen = uint64(scan.scriptBytes)
	f.VisibleTextCharLen = uint64(scan.visibleRunes)
	f.ContentToMarkupRatio = ratio(scan.textBytes, len(lower))
	f.VisibleTextDensity = ratio(scan.visibleBytes, len(lower))

	f.ParagraphCount = countTag(lower, "p")
	f.ArticleOrMainCount = countTag(lower, "article") + countTag(lower, "main")
	for _, h := range headingTags {
		f.HeadingCount += countTag(lower, h)
	}

	f.HasOpenGraph = containsAny(lower, openGraphMarkers)
	f.HasJSONLDArticle = hasJSONLDArticle(lower)
	f.HasReact = containsAny(lower, reactMarkers)
	f.HasVue = containsAny(lower, vueMarkers)
	f.HasAngular = containsAny(lower, angularMarkers)
	f.HasAntiScraping = containsAny(lower, antiScrapingMarkers)
	f.HasPlaceholderUI = hasPlaceholderUI(lower)
	f.HasMainContentStructure = containsAny(lower, mainContentMarkers)
	f.SPAMarkerCount = countSPAMarkers(lower, scan.scriptBytes)
	return f
}

func ratio(n, d int) float64 {
	if d <= 0 || n <= 0 {
		return 0
	}
	r := float64(n) / float64(d)
	if r > 1 {
		return 1
	}
	return r
}

type textScan struct {
	textBytes    int
	visibleBytes int
	visibleRunes int
	scriptBytes  int
}

// scanText walks lowered markup once. Text outside angle brackets counts
// towards textBytes; the same text minus script, style and noscript blocks
// counts towards visible*. Both totals exclude leading and trailing
// whitespace. A block with no closing tag hides the rest of the document.
func scanText(lower string) textScan {
	var all, vis trimCounter
	allInTag, visInTag := false, false
	skipUntil := -1
	scriptBytes := 0
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c == '<' && i >= skipUntil {
			if name, ok := hiddenBlockAt(lower, i); ok {
				end, bodyEnd := closingTagEnd(lower, i+1+len(name), name)
				skipUntil = end
				if name == "script" && bodyEnd > i+len("<script") {
					scriptBytes += bodyEnd - (i + len("<script"))
				}
			}
		}

		switch {
		case c == '<':
			allInTag = true
		case c == '>':
			allInTag = false
		case !allInTag:
			all.add(c)
		}

		if i < skipUntil {
			continue
		}
		switch {
		case c == '<':
			visInTag = true
		case c == '>':
			visInTag = false
		case !visInTag:
			vis.add(c)
		}
	}
	return textScan{
		textBytes:    all.trimmed(),
		visibleBytes: vis.trimmed(),
		visibleRunes: vis.trimmedRunes(),
		scriptBytes:  scriptBytes,
	}
}

type trimCounter struct {
	n, runes        int
	lead, leadRunes int
	last, lastRunes int
	seen            bool
}

func (t *trimCounter) add(c byte) {
	t.n++
	if c&0xC0 != 0x80 {
		t.runes++
	}
	if isSpaceByte(c) {
		if !t.seen {
			t.lead = t.n
			t.leadRunes = t.runes
		}
		return
	}
	t.seen = true
	t.last = t.n
	t.lastRunes = t.runes
}

func (t *trimCounter) trimmed() int {
	if !t.seen {
		return 0
	}
	return t.last - t.lead
}

func (t *trimCounter) trimmedRunes() int {
	if !t.seen {
		return 0
	}
	return t.lastRunes - t.leadRunes
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r' || c == '\f' || c == '\v'
}

var hiddenBlocks = []string{"script", "style", "noscript"}

func hiddenBlockAt(lower string, i int) (string, bool) {
	rest := lower[i+1:]
	for _, name := range hiddenBlocks {
		if strings.HasPrefix(rest, name) && tagNameEnds(rest, len(name)) {
			return name, true
		}
	}
	return "", false
}

// closingTagEnd returns the index just past the closing tag of name searched
// from `from`, and the index where that closing tag starts. Both are
// len(lower) when the block is unterminated.
func closingTagEnd(lower string, from int, name string) (end int, bodyEnd int) {
	closing := "</" + name
	j := strings.Index(lower[from:], closing)
	if j < 0 {
		return len(lower), len(lower)
	}
	bodyEnd = from + j
	k := strings.IndexByte(lower[bodyEnd:], '>')
	if k < 0 {
		return len(lower), bodyEnd
	}
	return bodyEnd + k + 1, bodyEnd
}

func tagNameEnds(s string, at int) bool {
	if at >= len(s) {
		return true
	}
	switch s[at] {
	case '>', '/', ' ', '\n', '\t', '\r', '\f':
		return true
	}
	return false
}

// countTag counts opening tags of name, so "p" matches <p> and <p class=..>
// but not <pre> or <param>.
func countTag(lower, name string) int {
	open := "<" + name
	n := 0
	s := lower
	for {
		i := strings.Index(s, open)
		if i < 0 {
			return n
		}
		s = s[i+len(open):]
		if tagNameEnds(s, 0) {
			n++
		}
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func countAny(s string, needles []string) int {
	n := 0
	for _, needle := range needles {
		n += strings.Count(s, needle)
	}
	return n
}
