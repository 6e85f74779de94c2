package chunking

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type span struct {
	start, end int
}

var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true, "sr": true, "jr": true,
	"st": true, "vs": true, "etc": true, "e.g": true, "i.e": true, "inc": true, "ltd": true,
	"co": true, "corp": true, "fig": true, "no": true, "vol": true, "approx": true, "dept": true,
	"est": true, "u.s": true, "u.k": true, "jan": true, "feb": true, "mar": true, "apr": true,
	"jun": true, "jul": true, "aug": true, "sep": true, "sept": true, "oct": true, "nov": true,
	"dec": true, "mt": true, "ft": true, "al": true, "cf": true, "p": true, "pp": true,
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '…', '。', '！', '？':
		return true
	}
	return false
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', '”', '’', ')', ']', '»':
		return true
	}
	return false
}

// splitSentences returns sentence spans with surrounding whitespace
// excluded. A sentence ends at terminal punctuation followed by whitespace,
// unless the period closes a known abbreviation or an initial, or the next
// word starts lowercase. Decimals never split because no space follows the
// point. maxWords > 0 also cuts run-on text every maxWords words.
func splitSentences(text string, maxWords int) []span {
	var out []span
	start, wordStart := -1, 0
	words := 0
	inWord := false
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			if inWord {
				inWord = false
				words++
				if maxWords > 0 && words >= maxWords {
					out = append(out, span{start, i})
					start, words = -1, 0
				}
			}
			i += size
			continue
		}
		if start < 0 {
			start = i
		}
		if !inWord {
			inWord = true
			wordStart = i
		}
		if !isTerminal(r) {
			i += size
			continue
		}
		j := i + size
		for j < len(text) {
			r2, s2 := utf8.DecodeRuneInString(text[j:])
			if !isTerminal(r2) && !isCloser(r2) {
				break
			}
			j += s2
		}
		if sentenceEndsAt(text, wordStart, i, j, r) {
			out = append(out, span{start, j})
			start, words = -1, 0
			inWord = false
		}
		i = j
	}
	if start >= 0 {
		end := len(strings.TrimRightFunc(text, unicode.IsSpace))
		if end > start {
			out = append(out, span{start, end})
		}
	}
	return out
}

func sentenceEndsAt(text string, wordStart, term, after int, r rune) bool {
	if r == '。' || r == '！' || r == '？' {
		return true
	}
	if after < len(text) {
		next, _ := utf8.DecodeRuneInString(text[after:])
		if !unicode.IsSpace(next) {
			return false
		}
	}
	if r != '.' {
		return true
	}
	word := strings.TrimLeft(text[wordStart:term], "\"'([“‘«")
	if abbreviations[strings.ToLower(word)] {
		return false
	}
	if n := utf8.RuneCountInString(word); n == 1 {
		if c, _ := utf8.DecodeRuneInString(word); unicode.IsUpper(c) {
			return false
		}
	}
	rest := strings.TrimLeftFunc(text[after:], unicode.IsSpace)
	if rest != "" {
		if c, _ := utf8.DecodeRuneInString(rest); unicode.IsLower(c) {
			return false
		}
	}
	return true
}

// endsSentence reports whether the last non-space rune of s is terminal
// punctuation.
func endsSentence(s string) bool {
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return isTerminal(r)
}
