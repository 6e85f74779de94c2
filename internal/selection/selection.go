package selection

import (
	"github.com/hyperifyio/contentcore/internal/engine"
	"github.com/hyperifyio/contentcore/internal/features"
	"github.com/hyperifyio/contentcore/internal/gate"
)

// Criteria is the input to an engine selection.
type Criteria struct {
	HTML  string
	URL   string
	Flags engine.Flags
}

// EngineConfig is the cacheable engine recommendation with its rationale.
type EngineConfig struct {
	Engine     engine.Engine `json:"engine"`
	Confidence float64       `json:"confidence"`
	Reasons    []string      `json:"reasons"`
	Flags      engine.Flags  `json:"flags"`
}

// Compute is the uncached selection: features, engine decision, confidence
// and reasons. It depends only on its arguments.
func Compute(c Criteria, w gate.Weights) EngineConfig {
	f := features.Extract(c.HTML, c.URL)
	e := engine.Decide(f, c.Flags)
	return EngineConfig{
		Engine:     e,
		Confidence: w.Score(f),
		Reasons:    gate.GenerateReasons(f, e),
		Flags:      c.Flags,
	}
}
