package gate

import (
	"fmt"
	"strings"

	"github.com/hyperifyio/contentcore/internal/features"
)

// Decision is the initial fetch/render path for a page.
type Decision int

const (
	Raw Decision = iota
	ProbesFirst
	Headless
)

func (d Decision) String() string {
	switch d {
	case Raw:
		return "raw"
	case ProbesFirst:
		return "probes_first"
	case Headless:
		return "headless"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

func (d Decision) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Decision) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "raw":
		*d = Raw
	case "probes_first", "probesfirst":
		*d = ProbesFirst
	case "headless":
		*d = Headless
	default:
		return fmt.Errorf("unknown decision: %q", string(b))
	}
	return nil
}

// Signal thresholds shared by scoring and reason generation.
const (
	VeryLowContentRatio    = 0.1
	GoodContentRatio       = 0.3
	LowVisibleDensity      = 0.15
	StructuredContentRatio = 0.2
	MaxScore               = 100.0
)

// Weights are the additive contributions of each signal. The score starts at
// Base and is clamped to [0, MaxScore].
type Weights struct {
	Base                float64 `yaml:"base" json:"base"`
	AntiScraping        float64 `yaml:"antiScraping" json:"antiScraping"`
	Framework           float64 `yaml:"framework" json:"framework"`
	SPAMarkers          float64 `yaml:"spaMarkers" json:"spaMarkers"`
	VeryLowContentRatio float64 `yaml:"veryLowContentRatio" json:"veryLowContentRatio"`
	GoodContentRatio    float64 `yaml:"goodContentRatio" json:"goodContentRatio"`
	LowVisibleDensity   float64 `yaml:"lowVisibleDensity" json:"lowVisibleDensity"`
	Placeholders        float64 `yaml:"placeholders" json:"placeholders"`
	StructuredContent   float64 `yaml:"structuredContent" json:"structuredContent"`
	// DomainPrior scales (0.5 - prior); trusted hosts pull the score down.
	DomainPrior float64 `yaml:"domainPrior" json:"domainPrior"`
}

// DefaultWeights returns the reference weight table.
func DefaultWeights() Weights {
	return Weights{
		Base:                50,
		AntiScraping:        40,
		Framework:           30,
		SPAMarkers:          20,
		VeryLowContentRatio: 25,
		GoodContentRatio:    15,
		LowVisibleDensity:   10,
		Placeholders:        15,
		StructuredContent:   10,
	}
}

// Score returns how strongly the features indicate JavaScript rendering is
// required, in [0, 100], using the default weights.
func Score(f features.ContentFeatures) float64 {
	return DefaultWeights().Score(f)
}

// Score accumulates signals in a fixed order.
func (w Weights) Score(f features.ContentFeatures) float64 {
	s := w.Base
	if f.HasAntiScraping {
		s += w.AntiScraping
	}
	if f.HasFramework() {
		s += w.Framework
	}
	if f.SPAMarkerCount > 0 {
		s += w.SPAMarkers
	}
	switch {
	case f.ContentToMarkupRatio < VeryLowContentRatio:
		s += w.VeryLowContentRatio
	case f.ContentToMarkupRatio > GoodContentRatio:
		s += w.GoodContentRatio
	}
	if f.VisibleTextDensity < LowVisibleDensity {
		s += w.LowVisibleDensity
	}
	if f.HasPlaceholderUI {
		s += w.Placeholders
	}
	if f.HasMainContentStructure && f.ContentToMarkupRatio > StructuredContentRatio {
		s += w.StructuredContent
	}
	s += (features.DefaultDomainPrior - f.DomainPrior) * w.DomainPrior
	return clamp(s, 0, MaxScore)
}

func clamp(v, lo, hi float64) float64 {
	if v != v {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Gate holds scoring weights and the two decision thresholds, both in [0, 1].
type Gate struct {
	Weights Weights
	Hi      float64
	Lo      float64
}

// Default thresholds.
const (
	DefaultHi = 0.8
	DefaultLo = 0.3
)

// New returns a Gate with the default weights.
func New(hi, lo float64) Gate {
	return Gate{Weights: DefaultWeights(), Hi: hi, Lo: lo}
}

// Decide maps a score onto a path. The Raw bound is checked first so that
// raising hi can never turn a Headless decision into Raw.
func (g Gate) Decide(f features.ContentFeatures) Decision {
	return decideScore(g.Weights.Score(f), g.Hi, g.Lo)
}

// ResolveProbe decides the follow-up after a ProbesFirst fetch: a probe that
// scores Raw settles the page, anything else escalates to Headless.
func (g Gate) ResolveProbe(probe features.ContentFeatures) Decision {
	if g.Decide(probe) == Raw {
		return Raw
	}
	return Headless
}

// Decide applies default weights with caller thresholds in [0, 1].
func Decide(f features.ContentFeatures, hi, lo float64) Decision {
	return New(hi, lo).Decide(f)
}

// ResolveProbe applies default weights with caller thresholds in [0, 1].
func ResolveProbe(probe features.ContentFeatures, hi, lo float64) Decision {
	return New(hi, lo).ResolveProbe(probe)
}

func decideScore(score, hi, lo float64) Decision {
	switch {
	case score <= lo*MaxScore:
		return Raw
	case score >= hi*MaxScore:
		return Headless
	default:
		return ProbesFirst
	}
}
