package gate

import (
	"fmt"

	"github.com/hyperifyio/contentcore/internal/engine"
	"github.com/hyperifyio/contentcore/internal/features"
)

// GenerateReasons explains the signals behind a selection, one sentence per
// signal in scoring order. When no signal fired it returns the engine's
// default sentence.
func GenerateReasons(f features.ContentFeatures, e engine.Engine) []string {
	var reasons []string
	if f.HasAntiScraping {
		reasons = append(reasons, "Anti-scraping protection detected (Cloudflare, reCAPTCHA)")
	}
	if f.HasReact {
		reasons = append(reasons, "React framework detected (Next.js markers, webpack)")
	}
	if f.HasVue {
		reasons = append(reasons, "Vue.js framework detected")
	}
	if f.HasAngular {
		reasons = append(reasons, "Angular framework detected")
	}
	if f.SPAMarkerCount > 0 {
		reasons = append(reasons, "Single Page Application (SPA) markers found")
	}
	switch {
	case f.ContentToMarkupRatio < VeryLowContentRatio:
		reasons = append(reasons, fmt.Sprintf("Low content-to-markup ratio (%.1f%%) suggests client-side rendering", f.ContentToMarkupRatio*100))
	case f.ContentToMarkupRatio > GoodContentRatio:
		reasons = append(reasons, fmt.Sprintf("Good content-to-markup ratio (%.1f%%) indicates server-rendered content", f.ContentToMarkupRatio*100))
	}
	if f.VisibleTextDensity < LowVisibleDensity {
		reasons = append(reasons, "Low visible text density (excluding scripts/styles)")
	}
	if f.HasPlaceholderUI {
		reasons = append(reasons, "Skeleton/placeholder UI detected (shimmer, loading indicators)")
	}
	if f.HasMainContentStructure && f.ContentToMarkupRatio > StructuredContentRatio {
		reasons = append(reasons, "Well-structured content with article/main tags")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, defaultReason(e))
	}
	return reasons
}

func defaultReason(e engine.Engine) string {
	switch e {
	case engine.Headless:
		return "JavaScript execution required for content rendering"
	case engine.Wasm:
		return "Standard HTML extraction with WASM is sufficient"
	case engine.Raw:
		return "Simple HTTP fetch without JavaScript execution"
	default:
		return "Automatic engine selection needed"
	}
}
