package engine

import "github.com/hyperifyio/contentcore/internal/features"

// LowContentRatio is the content-to-markup ratio under which served HTML is
// assumed to be a client-rendered shell.
const LowContentRatio = 0.1

// Decide picks an engine from page features. Anti-scraping always needs a
// real browser; client-rendering signals go to Wasm first when probe-first is
// enabled and straight to Headless otherwise.
func Decide(f features.ContentFeatures, flags Flags) Engine {
	if f.HasAntiScraping {
		return Headless
	}
	jsShell := f.HasFramework() || f.SPAMarkerCount > 0
	if !jsShell {
		ratio := f.ContentToMarkupRatio
		if flags.UseVisibleTextDensity {
			ratio = f.VisibleTextDensity
		}
		jsShell = ratio < LowContentRatio
	}
	if !jsShell && flags.DetectPlaceholders {
		jsShell = f.HasPlaceholderUI
	}
	if jsShell {
		if flags.ProbeFirstSPA {
			return Wasm
		}
		return Headless
	}
	return Wasm
}

// DecideWithFlags extracts features from html and url and applies Decide.
func DecideWithFlags(html, pageURL string, flags Flags) Engine {
	return Decide(features.Extract(html, pageURL), flags)
}
