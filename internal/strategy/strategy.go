// Package strategy chooses how a page is extracted and chunked. Extraction
// follows the page host, chunking follows the render mode. Both choices are
// pure functions of their input.
package strategy

import (
	"regexp"
	"sort"

	"github.com/andybalholm/cascadia"

	cerrors "github.com/hyperifyio/contentcore/internal/errors"
)

// Kind names an extraction strategy.
type Kind string

const (
	KindTrek    Kind = "trek"
	KindCSSJSON Kind = "css_json"
	KindRegex   Kind = "regex"
	KindLLM     Kind = "llm"
)

// Strategy is one of Trek, *CSSJSON, *Regex or LLM.
type Strategy interface {
	Kind() Kind
}

// Trek is readability-style main content extraction. It takes no options.
type Trek struct{}

// CSSJSON extracts named fields with CSS selectors. Build it with NewCSSJSON
// so that every selector is compiled once.
type CSSJSON struct {
	Selectors map[string]string
	compiled  map[string]cascadia.Selector
}

// Pattern extracts Field from the first submatch of Pattern.
type Pattern struct {
	Name     string `json:"name"`
	Pattern  string `json:"pattern"`
	Field    string `json:"field"`
	Required bool   `json:"required"`
}

// CompiledPattern pairs a Pattern with its compiled expression.
type CompiledPattern struct {
	Pattern
	Re *regexp.Regexp
}

// Regex extracts fields with ordered patterns. Build it with NewRegex.
type Regex struct {
	Patterns []Pattern
	compiled []CompiledPattern
}

// LLM delegates extraction to a language model. The core does not execute
// it; the strategy is carried for the caller.
type LLM struct {
	Model          string `json:"model"`
	PromptTemplate string `json:"prompt_template"`
}

func (Trek) Kind() Kind     { return KindTrek }
func (*CSSJSON) Kind() Kind { return KindCSSJSON }
func (*Regex) Kind() Kind   { return KindRegex }
func (LLM) Kind() Kind      { return KindLLM }

// NewCSSJSON compiles selectors. An empty or malformed selector fails the
// whole strategy.
func NewCSSJSON(selectors map[string]string) (*CSSJSON, error) {
	if len(selectors) == 0 {
		return nil, cerrors.NewInvalidConfig("selectors", "at least one selector is required")
	}
	s := &CSSJSON{Selectors: make(map[string]string, len(selectors)), compiled: make(map[string]cascadia.Selector, len(selectors))}
	for _, name := range sortedKeys(selectors) {
		css := selectors[name]
		sel, err := cascadia.Compile(css)
		if err != nil {
			return nil, cerrors.NewInvalidSelector("selectors."+name, css, err)
		}
		s.Selectors[name] = css
		s.compiled[name] = sel
	}
	return s, nil
}

// Fields returns the compiled field names in sorted order.
func (s *CSSJSON) Fields() []string {
	keys := make([]string, 0, len(s.compiled))
	for k := range s.compiled {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// clone copies Selectors. The compiled selectors are immutable and shared.
func (s *CSSJSON) clone() *CSSJSON {
	sel := make(map[string]string, len(s.Selectors))
	for k, v := range s.Selectors {
		sel[k] = v
	}
	return &CSSJSON{Selectors: sel, compiled: s.compiled}
}

// Matcher returns the compiled selector for a field.
func (s *CSSJSON) Matcher(field string) (cascadia.Selector, bool) {
	sel, ok := s.compiled[field]
	return sel, ok
}

// NewRegex compiles patterns in order.
func NewRegex(patterns []Pattern) (*Regex, error) {
	if len(patterns) == 0 {
		return nil, cerrors.NewInvalidConfig("patterns", "at least one pattern is required")
	}
	r := &Regex{Patterns: append([]Pattern(nil), patterns...)}
	for _, p := range r.Patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, cerrors.NewInvalidPattern("patterns."+p.Name, p.Pattern, err)
		}
		r.compiled = append(r.compiled, CompiledPattern{Pattern: p, Re: re})
	}
	return r, nil
}

// Compiled returns a copy of the patterns with their expressions, in order.
func (r *Regex) Compiled() []CompiledPattern {
	return append([]CompiledPattern(nil), r.compiled...)
}

func (r *Regex) clone() *Regex {
	return &Regex{Patterns: append([]Pattern(nil), r.Patterns...), compiled: r.compiled}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
