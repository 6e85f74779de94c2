package strategy

import "github.com/hyperifyio/contentcore/internal/chunking"

// Table maps render modes to chunking configurations.
type Table map[RenderMode]chunking.Config

func htmlChunking() chunking.Config {
	return chunking.Config{Mode: chunking.Sliding{}, TokenMax: 1200, Overlap: 120, PreserveSentences: true, Deterministic: true}
}

// DefaultTable returns a fresh copy of the built-in table.
func DefaultTable() Table {
	return Table{
		RenderHTML: htmlChunking(),
		RenderPDF: {
			Mode:     chunking.Fixed{Size: 2000, ByTokens: true},
			TokenMax: 2000, Overlap: 200, PreserveSentences: true, Deterministic: true,
		},
		RenderMarkdown: {
			Mode:     chunking.Topic{Enabled: true, WindowSize: 3, SmoothingPasses: 2, SimilarityThreshold: 0.7},
			TokenMax: 1500, Overlap: 150, PreserveSentences: true, Deterministic: true,
		},
		RenderStatic:   htmlChunking(),
		RenderDynamic:  htmlChunking(),
		RenderAdaptive: htmlChunking(),
	}
}

// For returns the configuration of m, falling back to the built-in entry and
// then to the html entry.
func (t Table) For(m RenderMode) chunking.Config {
	if cfg, ok := t[m]; ok {
		return cfg
	}
	if cfg, ok := DefaultTable()[m]; ok {
		return cfg
	}
	return htmlChunking()
}

// WithOverrides returns a copy of t with entries replaced from settings,
// keyed by render mode name. Every override is validated by building its
// chunker.
func (t Table) WithOverrides(settings map[string]chunking.Settings) (Table, error) {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	for name, s := range settings {
		mode, err := ParseRenderMode(name)
		if err != nil {
			return nil, err
		}
		cfg, err := s.Config()
		if err != nil {
			return nil, err
		}
		if _, err := chunking.New(cfg); err != nil {
			return nil, err
		}
		out[mode] = cfg
	}
	return out, nil
}

// SelectChunking returns the built-in configuration for m.
func SelectChunking(m RenderMode) chunking.Config {
	return DefaultTable().For(m)
}
