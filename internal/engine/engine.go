package engine

import (
	"fmt"
	"strings"
)

// Engine is the rendering/extraction backend recommended for a page.
type Engine int

const (
	Auto Engine = iota
	Raw
	Wasm
	Headless
)

var engineNames = [...]string{"auto", "raw", "wasm", "headless"}

func (e Engine) String() string {
	if e < Auto || e > Headless {
		return fmt.Sprintf("engine(%d)", int(e))
	}
	return engineNames[e]
}

// MarshalText encodes the engine by name so cached selections stay readable.
func (e Engine) MarshalText() ([]byte, error) {
	if e < Auto || e > Headless {
		return nil, fmt.Errorf("unknown engine %d", int(e))
	}
	return []byte(e.String()), nil
}

func (e *Engine) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Parse resolves an engine name case-insensitively.
func Parse(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto":
		return Auto, nil
	case "raw":
		return Raw, nil
	case "wasm":
		return Wasm, nil
	case "headless":
		return Headless, nil
	}
	return Auto, fmt.Errorf("unknown engine: %q", s)
}

// All lists every engine in declaration order.
func All() []Engine {
	return []Engine{Auto, Raw, Wasm, Headless}
}

// Flags refine how the engine is chosen. They are part of the selection cache
// key.
type Flags struct {
	UseVisibleTextDensity bool `json:"use_visible_text_density"`
	DetectPlaceholders    bool `json:"detect_placeholders"`
	ProbeFirstSPA         bool `json:"probe_first_spa"`
}

// Key is the stable textual form of the flags used in cache keys.
func (f Flags) Key() string {
	b := func(v bool) byte {
		if v {
			return '1'
		}
		return '0'
	}
	return string([]byte{'v', b(f.UseVisibleTextDensity), 'p', b(f.DetectPlaceholders), 's', b(f.ProbeFirstSPA)})
}

// Capabilities describes what an engine can do and what it costs.
type Capabilities struct {
	Engine           Engine `json:"engine"`
	ExecutesJS       bool   `json:"executes_js"`
	RelativeCost     int    `json:"relative_cost"`
	TypicalLatencyMS int    `json:"typical_latency_ms"`
	Description      string `json:"description"`
}

var capabilities = map[Engine]Capabilities{
	Auto:     {Engine: Auto, RelativeCost: 0, Description: "Select an engine per page from content signals"},
	Raw:      {Engine: Raw, RelativeCost: 1, TypicalLatencyMS: 150, Description: "Plain HTTP fetch, no JavaScript"},
	Wasm:     {Engine: Wasm, RelativeCost: 2, TypicalLatencyMS: 250, Description: "Local extraction over served HTML"},
	Headless: {Engine: Headless, ExecutesJS: true, RelativeCost: 10, TypicalLatencyMS: 3000, Description: "Headless browser render with JavaScript"},
}

// CapabilitiesOf returns the capability record for e.
func CapabilitiesOf(e Engine) (Capabilities, bool) {
	c, ok := capabilities[e]
	return c, ok
}

// ShouldEscalateToHeadless reports whether an extraction result is weak enough
// that the page should be re-fetched through the headless renderer.
func ShouldEscalateToHeadless(qualityScore float64, wordCount int) bool {
	if qualityScore < 30 || wordCount < 50 {
		return true
	}
	return qualityScore < 50 && wordCount < 100
}
