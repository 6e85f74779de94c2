package chunking

import (
	"strings"
	"testing"
	"time"

	cerrors "github.com/hyperifyio/contentcore/internal/errors"
)

// allModes mirrors the nine configurations the latency budget applies to.
func allModes() map[string]Config {
	base := func(m Mode) Config {
		return Config{Mode: m, TokenMax: 1200, Overlap: 120, PreserveSentences: true, Deterministic: true}
	}
	return map[string]Config{
		"sliding":        base(Sliding{Window: 1000, Overlap: 100}),
		"fixed_tokens":   base(Fixed{Size: 800, ByTokens: true}),
		"fixed_chars":    base(Fixed{Size: 1000}),
		"sentence":       base(Sentence{MaxSentences: 5}),
		"regex":          base(Regex{Pattern: `\n\s*\n`, MinChunkSize: 200}),
		"html_blocks":    base(HTMLAware{PreserveBlocks: true, PreserveStructure: true}),
		"html_text":      base(HTMLAware{PreserveBlocks: true, PreserveStructure: false}),
		"topic":          base(Topic{Enabled: true, WindowSize: 3, SmoothingPasses: 2}),
		"topic_disabled": base(Topic{Enabled: false, WindowSize: 3, SmoothingPasses: 2}),
	}
}

func mustChunk(t *testing.T, text string, cfg Config) []Chunk {
	t.Helper()
	chunks, err := Split(text, cfg)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	return chunks
}

func TestEmptyInputYieldsNoChunks(t *testing.T) {
	for name, cfg := range allModes() {
		for _, in := range []string{"", "   ", "\n\t \n"} {
			start := time.Now()
			chunks := mustChunk(t, in, cfg)
			if d := time.Since(start); d > 10*time.Millisecond {
				t.Fatalf("%s: empty input took %v", name, d)
			}
			if len(chunks) != 0 {
				t.Fatalf("%s: expected no chunks for %q, got %d", name, in, len(chunks))
			}
		}
	}
}

func TestNonEmptyInputAlwaysYieldsContent(t *testing.T) {
	inputs := []string{"a", "Hello.", "こんにちは 世界", "<div></div>", "no punctuation at all here", "<p>x</p>"}
	for name, cfg := range allModes() {
		for _, in := range inputs {
			chunks := mustChunk(t, in, cfg)
			if len(chunks) == 0 {
				t.Fatalf("%s: no chunks for %q", name, in)
			}
			total := 0
			for _, c := range chunks {
				total += len(strings.TrimSpace(c.Content))
				if c.StartOffset < 0 || c.EndOffset > len(in) || c.StartOffset > c.EndOffset {
					t.Fatalf("%s: bad offsets %d..%d for %q", name, c.StartOffset, c.EndOffset, in)
				}
			}
			if total == 0 {
				t.Fatalf("%s: empty content for %q", name, in)
			}
		}
	}
}

func TestChunksAreNumberedAndIdentified(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 200)
	for name, cfg := range allModes() {
		cfg.TokenMax = 100
		a := mustChunk(t, text, cfg)
		b := mustChunk(t, text, cfg)
		if len(a) != len(b) {
			t.Fatalf("%s: nondeterministic chunk count %d vs %d", name, len(a), len(b))
		}
		seen := map[string]bool{}
		for i := range a {
			if a[i].ID != b[i].ID || a[i].Content != b[i].Content {
				t.Fatalf("%s: chunk %d differs between runs", name, i)
			}
			if a[i].Index != i || a[i].TotalChunks != len(a) {
				t.Fatalf("%s: chunk %d numbered %d/%d", name, i, a[i].Index, a[i].TotalChunks)
			}
			if seen[a[i].ID] {
				t.Fatalf("%s: duplicate id %s", name, a[i].ID)
			}
			seen[a[i].ID] = true
			if q := a[i].Metadata.QualityScore; q < 0 || q > 1 {
				t.Fatalf("%s: quality %v out of range", name, q)
			}
		}
	}
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		code cerrors.ErrorCode
	}{
		{"bad regex", Config{Mode: Regex{Pattern: "("}}, cerrors.ErrInvalidPattern},
		{"empty regex", Config{Mode: Regex{}}, cerrors.ErrInvalidConfig},
		{"zero fixed", Config{Mode: Fixed{}}, cerrors.ErrInvalidConfig},
		{"zero sentences", Config{Mode: Sentence{}}, cerrors.ErrInvalidConfig},
		{"negative window", Config{Mode: Sliding{Window: -1}}, cerrors.ErrInvalidConfig},
	}
	for _, tc := range cases {
		_, err := New(tc.cfg)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !cerrors.Is(err, tc.code) {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.code, err)
		}
	}
}

func TestSlidingOverlapAtOrAboveWindowTerminates(t *testing.T) {
	text := strings.Repeat("word ", 200)
	for _, m := range []Sliding{{Window: 50, Overlap: 50}, {Window: 30, Overlap: 100}} {
		chunks := mustChunk(t, text, Config{Mode: m, TokenMax: 50})
		if len(chunks) == 0 || len(chunks) > 200 {
			t.Fatalf("%+v: unexpected chunk count %d", m, len(chunks))
		}
		last := chunks[len(chunks)-1]
		if last.EndOffset != len(strings.TrimRight(text, " ")) {
			t.Fatalf("%+v: last chunk ends at %d", m, last.EndOffset)
		}
	}
}

func TestSlidingWindowsAndOverlap(t *testing.T) {
	words := make([]string, 25)
	for i := range words {
		words[i] = "w" + string(rune('a'+i))
	}
	text := strings.Join(words, " ")
	chunks := mustChunk(t, text, Config{Mode: Sliding{Window: 10, Overlap: 2}})
	// starts at 0, 8, 16; the third window reaches the end
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[1].Content, "wi ") || chunks[0].TokenCount != 10 {
		t.Fatalf("unexpected windows: %q / %d", chunks[1].Content, chunks[0].TokenCount)
	}
	for _, c := range chunks {
		if text[c.StartOffset:c.EndOffset] != c.Content {
			t.Fatalf("offsets do not match content %q", c.Content)
		}
	}
}

func TestSlidingPrefersSentenceEnds(t *testing.T) {
	text := "One two three four five six seven. Eight nine ten eleven twelve."
	chunks := mustChunk(t, text, Config{Mode: Sliding{Window: 10}, PreserveSentences: true})
	if chunks[0].Content != "One two three four five six seven." {
		t.Fatalf("expected sentence cut, got %q", chunks[0].Content)
	}
	if !chunks[0].Metadata.HasCompleteSentences {
		t.Fatalf("first chunk should be complete")
	}
}

func TestTopicDisabledFallsBackToSliding(t *testing.T) {
	text := strings.Repeat("Alpha beta gamma delta. ", 300)
	cfg := Config{TokenMax: 100, Overlap: 10, PreserveSentences: true}
	cfg.Mode = Topic{Enabled: false, WindowSize: 3, SmoothingPasses: 2}
	fallback := mustChunk(t, text, cfg)
	cfg.Mode = Sliding{}
	sliding := mustChunk(t, text, cfg)
	if len(fallback) != len(sliding) {
		t.Fatalf("fallback produced %d chunks, sliding %d", len(fallback), len(sliding))
	}
	for i := range fallback {
		if fallback[i].Content != sliding[i].Content || fallback[i].Metadata.ChunkType != "sliding" {
			t.Fatalf("chunk %d differs from sliding", i)
		}
	}
}

func TestUnicodeCountsTokens(t *testing.T) {
	chunks := mustChunk(t, "こんにちは 世界 ünïcödé", DefaultConfig())
	if len(chunks) != 1 || chunks[0].TokenCount != 3 {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}

func TestSentenceCompleteness(t *testing.T) {
	chunks := mustChunk(t, "Hello.", Config{Mode: Sentence{MaxSentences: 3}})
	if len(chunks) != 1 || !chunks[0].Metadata.HasCompleteSentences {
		t.Fatalf("expected one complete chunk, got %+v", chunks)
	}
	chunks = mustChunk(t, "Hello there", Config{Mode: Sentence{MaxSentences: 3}})
	if chunks[0].Metadata.HasCompleteSentences {
		t.Fatalf("unterminated text reported complete")
	}
}
