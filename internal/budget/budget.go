package budget

import (
    "math"
    "unicode"
    "unicode/utf8"
)

// Span marks a token by byte offsets into the source string.
type Span struct {
    Start int
    End   int
}

// EstimateTokensFromChars converts a character count into an estimated token
// count using a conservative heuristic (~4 chars per token in English). The
// result is always at least 1 when chars > 0.
func EstimateTokensFromChars(charCount int) int {
    if charCount <= 0 {
        return 0
    }
    return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the char-based token estimate of a string.
func EstimateTokens(s string) int {
    return EstimateTokensFromChars(utf8.RuneCountInString(s))
}

// Words returns the whitespace-delimited tokens of s. Chunk windows and
// reported token counts are measured in these units.
func Words(s string) []Span {
    out := make([]Span, 0, len(s)/6+1)
    start := -1
    for i, r := range s {
        if unicode.IsSpace(r) {
            if start >= 0 {
                out = append(out, Span{Start: start, End: i})
                start = -1
            }
            continue
        }
        if start < 0 {
            start = i
        }
    }
    if start >= 0 {
        out = append(out, Span{Start: start, End: len(s)})
    }
    return out
}

// CountTokens returns the number of whitespace-delimited tokens in s without
// allocating spans.
func CountTokens(s string) int {
    n := 0
    in := false
    for _, r := range s {
        if unicode.IsSpace(r) {
            in = false
            continue
        }
        if !in {
            n++
            in = true
        }
    }
    return n
}

// FitsBudget reports whether s stays within max tokens. A non-positive max
// never fits.
func FitsBudget(s string, max int) bool {
    if max <= 0 {
        return false
    }
    return CountTokens(s) <= max
}
