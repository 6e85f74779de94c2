package extract

import (
	"bytes"
	"errors"
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/contentcore/internal/strategy"
)

// ErrNotExecutable is returned for strategies the core cannot run itself.
var ErrNotExecutable = errors.New("extract: strategy is not executable in-core")

// Extractor turns a page into a Document. Implementations hold no mutable
// state and are safe for concurrent use.
type Extractor interface {
	Extract(input []byte, pageURL string) (Document, error)
}

// ForStrategy returns the extractor that executes s.
func ForStrategy(s strategy.Strategy) Extractor {
	switch v := s.(type) {
	case *strategy.CSSJSON:
		return CSSJSONExtractor{Strategy: v}
	case *strategy.Regex:
		return RegexExtractor{Strategy: v}
	case strategy.LLM:
		return LLMExtractor{Strategy: v}
	}
	return TrekExtractor{}
}

// HeuristicExtractor wraps FromHTML.
type HeuristicExtractor struct{}

func (HeuristicExtractor) Extract(input []byte, _ string) (Document, error) {
	return FromHTML(input), nil
}

// minTrekWords is the shortest readability result accepted before falling
// back to the heuristic walker.
const minTrekWords = 20

// TrekExtractor runs readability and falls back to FromHTML when readability
// fails or finds too little text.
type TrekExtractor struct{}

func (TrekExtractor) Extract(input []byte, pageURL string) (Document, error) {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || u.Host == "" {
		u = &url.URL{Scheme: "http", Host: "localhost", Path: "/"}
	}
	article, err := readability.FromReader(bytes.NewReader(input), u)
	fallback := FromHTML(input)
	if err != nil {
		log.Debug().Err(err).Str("url", pageURL).Msg("readability failed; using heuristic extraction")
		return fallback, nil
	}
	text := normalizeWhitespace(article.TextContent)
	if len(strings.Fields(text)) < minTrekWords && len(strings.Fields(fallback.Text)) > len(strings.Fields(text)) {
		return fallback, nil
	}
	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = fallback.Title
	}
	return Document{Title: title, Text: text}, nil
}

// CSSJSONExtractor reads the first match of every selector. Text lists the
// non-empty fields as "name: value" lines in field-name order.
type CSSJSONExtractor struct {
	Strategy *strategy.CSSJSON
}

func (e CSSJSONExtractor) Extract(input []byte, _ string) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return Document{}, err
	}
	out := Document{Fields: map[string]string{}}
	var lines []string
	for _, name := range e.Strategy.Fields() {
		sel, ok := e.Strategy.Matcher(name)
		if !ok {
			continue
		}
		value := normalizeWhitespace(doc.FindMatcher(sel).First().Text())
		if value == "" {
			out.Missing = append(out.Missing, name)
			continue
		}
		out.Fields[name] = value
		lines = append(lines, name+": "+value)
	}
	out.Title = out.Fields["title"]
	out.Text = strings.Join(lines, "\n")
	return out, nil
}

// RegexExtractor applies patterns to the raw page. A field takes the first
// submatch, or the whole match when the pattern has no groups.
type RegexExtractor struct {
	Strategy *strategy.Regex
}

func (e RegexExtractor) Extract(input []byte, _ string) (Document, error) {
	page := string(input)
	out := Document{Fields: map[string]string{}}
	var lines []string
	for _, p := range e.Strategy.Compiled() {
		m := p.Re.FindStringSubmatch(page)
		value := ""
		switch {
		case len(m) > 1:
			value = m[1]
		case len(m) == 1:
			value = m[0]
		}
		value = strings.TrimSpace(html.UnescapeString(value))
		if value == "" {
			if p.Required {
				out.Missing = append(out.Missing, p.Field)
			}
			continue
		}
		if _, seen := out.Fields[p.Field]; seen {
			continue
		}
		out.Fields[p.Field] = value
		lines = append(lines, p.Field+": "+value)
	}
	out.Title = out.Fields["title"]
	out.Text = strings.Join(lines, "\n")
	return out, nil
}

// LLMExtractor carries an LLM strategy. Extract always fails with
// ErrNotExecutable; callers route the page to a model themselves.
type LLMExtractor struct {
	Strategy strategy.LLM
}

func (e LLMExtractor) Extract([]byte, string) (Document, error) {
	return Document{}, ErrNotExecutable
}
