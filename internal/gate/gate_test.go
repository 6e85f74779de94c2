package gate

import (
	"math"
	"strings"
	"testing"

	"github.com/hyperifyio/contentcore/internal/engine"
	"github.com/hyperifyio/contentcore/internal/features"
)

func TestScore_WeightTable(t *testing.T) {
	cases := []struct {
		name string
		f    features.ContentFeatures
		want float64
	}{
		{"neutral", features.ContentFeatures{ContentToMarkupRatio: 0.2, VisibleTextDensity: 0.2}, 50},
		{"anti-scraping", features.ContentFeatures{HasAntiScraping: true, ContentToMarkupRatio: 0.2, VisibleTextDensity: 0.2}, 90},
		{"framework", features.ContentFeatures{HasVue: true, ContentToMarkupRatio: 0.2, VisibleTextDensity: 0.2}, 80},
		{"spa markers", features.ContentFeatures{SPAMarkerCount: 2, ContentToMarkupRatio: 0.2, VisibleTextDensity: 0.2}, 70},
		{"very low ratio", features.ContentFeatures{ContentToMarkupRatio: 0.05, VisibleTextDensity: 0.2}, 75},
		{"good ratio", features.ContentFeatures{ContentToMarkupRatio: 0.4, VisibleTextDensity: 0.2}, 65},
		{"low density", features.ContentFeatures{ContentToMarkupRatio: 0.2, VisibleTextDensity: 0.1}, 60},
		{"placeholders", features.ContentFeatures{HasPlaceholderUI: true, ContentToMarkupRatio: 0.2, VisibleTextDensity: 0.2}, 65},
		{"structured", features.ContentFeatures{HasMainContentStructure: true, ContentToMarkupRatio: 0.25, VisibleTextDensity: 0.2}, 60},
		{"clamped", features.ContentFeatures{HasAntiScraping: true, HasReact: true, SPAMarkerCount: 4, HasPlaceholderUI: true}, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.f); got != tc.want {
				t.Fatalf("Score = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestScore_Bounds(t *testing.T) {
	w := DefaultWeights()
	w.Base = -500
	if got := w.Score(features.ContentFeatures{}); got != 0 {
		t.Fatalf("expected clamp to 0, got %v", got)
	}
	for i := 0; i < 1<<8; i++ {
		f := features.ContentFeatures{
			HasAntiScraping:         i&1 != 0,
			HasReact:                i&2 != 0,
			SPAMarkerCount:          uint8(i >> 2 & 1),
			HasPlaceholderUI:        i&8 != 0,
			HasMainContentStructure: i&16 != 0,
			ContentToMarkupRatio:    float64(i%5) / 4,
			VisibleTextDensity:      float64(i%3) / 2,
			DomainPrior:             0.9,
		}
		if s := Score(f); s < 0 || s > 100 {
			t.Fatalf("score out of range: %v for %+v", s, f)
		}
	}
}

func TestScore_DomainPriorWeight(t *testing.T) {
	f := features.ContentFeatures{ContentToMarkupRatio: 0.2, VisibleTextDensity: 0.2, DomainPrior: 0.9}
	if got := Score(f); got != 50 {
		t.Fatalf("default weights must ignore domain prior, got %v", got)
	}
	w := DefaultWeights()
	w.DomainPrior = 50
	if got := w.Score(f); math.Abs(got-30) > 1e-9 {
		t.Fatalf("weighted prior score = %v, want 30", got)
	}
}

func TestDecide_SPAShellHeadless(t *testing.T) {
	f := features.Extract(`<div id="root"></div><script src="react.js"></script>`, "")
	if got := Decide(f, DefaultHi, DefaultLo); got != Headless {
		t.Fatalf("got %v, want headless (score %v)", got, Score(f))
	}
}

func TestDecide_Bands(t *testing.T) {
	cases := []struct {
		score float64
		want  Decision
	}{
		{10, Raw},
		{30, Raw},
		{31, ProbesFirst},
		{79, ProbesFirst},
		{80, Headless},
		{100, Headless},
	}
	for _, c := range cases {
		if got := decideScore(c.score, 0.8, 0.3); got != c.want {
			t.Fatalf("decideScore(%v) = %v, want %v", c.score, got, c.want)
		}
	}
}

func TestDecide_RaisingHiNeverYieldsRaw(t *testing.T) {
	for score := 0.0; score <= 100; score += 2.5 {
		for lo := 0.0; lo <= 1.0; lo += 0.05 {
			for hi := lo; hi <= 1.0; hi += 0.05 {
				if decideScore(score, hi, lo) != Headless {
					continue
				}
				for hi2 := hi; hi2 <= 1.0; hi2 += 0.05 {
					if decideScore(score, hi2, lo) == Raw {
						t.Fatalf("score %v lo %v: hi %v headless but hi %v raw", score, lo, hi, hi2)
					}
				}
			}
		}
	}
}

func TestResolveProbe(t *testing.T) {
	serverRendered := features.ContentFeatures{ContentToMarkupRatio: 0.5, VisibleTextDensity: 0.5}
	if got := ResolveProbe(serverRendered, 0.8, 0.7); got != Raw {
		t.Fatalf("well rendered probe should settle raw, got %v", got)
	}
	ambiguous := features.ContentFeatures{ContentToMarkupRatio: 0.2, VisibleTextDensity: 0.2}
	if got := ResolveProbe(ambiguous, 0.8, 0.3); got != Headless {
		t.Fatalf("ambiguous probe should escalate, got %v", got)
	}
}

func TestDecision_TextRoundTrip(t *testing.T) {
	for _, d := range []Decision{Raw, ProbesFirst, Headless} {
		b, _ := d.MarshalText()
		var back Decision
		if err := back.UnmarshalText(b); err != nil || back != d {
			t.Fatalf("round trip %v: %v %v", d, back, err)
		}
	}
}

func TestGenerateReasons_Order(t *testing.T) {
	f := features.ContentFeatures{
		HasAntiScraping:      true,
		HasReact:             true,
		SPAMarkerCount:       1,
		ContentToMarkupRatio: 0.02,
		VisibleTextDensity:   0.01,
		HasPlaceholderUI:     true,
	}
	got := GenerateReasons(f, engine.Headless)
	want := []string{
		"Anti-scraping protection detected",
		"React framework detected",
		"Single Page Application (SPA) markers found",
		"Low content-to-markup ratio (2.0%)",
		"Low visible text density",
		"Skeleton/placeholder UI detected",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d reasons, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !strings.HasPrefix(got[i], want[i]) {
			t.Fatalf("reason %d = %q, want prefix %q", i, got[i], want[i])
		}
	}
}

func TestGenerateReasons_EngineDefaults(t *testing.T) {
	quiet := features.ContentFeatures{ContentToMarkupRatio: 0.2, VisibleTextDensity: 0.2}
	cases := map[engine.Engine]string{
		engine.Headless: "JavaScript execution required for content rendering",
		engine.Wasm:     "Standard HTML extraction with WASM is sufficient",
		engine.Raw:      "Simple HTTP fetch without JavaScript execution",
		engine.Auto:     "Automatic engine selection needed",
	}
	for e, want := range cases {
		got := GenerateReasons(quiet, e)
		if len(got) != 1 || got[0] != want {
			t.Fatalf("%v: got %v", e, got)
		}
	}
}
