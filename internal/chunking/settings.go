package chunking

import (
	"strings"

	cerrors "github.com/hyperifyio/contentcore/internal/errors"
)

// Settings is the flat form of Config used in configuration files. Only the
// fields relevant to Mode are read.
type Settings struct {
	Mode              string `yaml:"mode" json:"mode"`
	TokenMax          int    `yaml:"tokenMax" json:"tokenMax"`
	Overlap           int    `yaml:"overlap" json:"overlap"`
	PreserveSentences bool   `yaml:"preserveSentences" json:"preserveSentences"`
	Deterministic     bool   `yaml:"deterministic" json:"deterministic"`

	Window int `yaml:"window,omitempty" json:"window,omitempty"`

	Size     int  `yaml:"size,omitempty" json:"size,omitempty"`
	ByTokens bool `yaml:"byTokens,omitempty" json:"byTokens,omitempty"`

	MaxSentences int `yaml:"maxSentences,omitempty" json:"maxSentences,omitempty"`

	Pattern      string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	MinChunkSize int    `yaml:"minChunkSize,omitempty" json:"minChunkSize,omitempty"`

	PreserveBlocks    bool `yaml:"preserveBlocks,omitempty" json:"preserveBlocks,omitempty"`
	PreserveStructure bool `yaml:"preserveStructure,omitempty" json:"preserveStructure,omitempty"`

	// TopicDisabled turns a topic mode into its sliding fallback.
	TopicDisabled       bool    `yaml:"topicDisabled,omitempty" json:"topicDisabled,omitempty"`
	WindowSize          int     `yaml:"windowSize,omitempty" json:"windowSize,omitempty"`
	SmoothingPasses     int     `yaml:"smoothingPasses,omitempty" json:"smoothingPasses,omitempty"`
	SimilarityThreshold float64 `yaml:"similarityThreshold,omitempty" json:"similarityThreshold,omitempty"`
}

// Config converts s, rejecting unknown mode names.
func (s Settings) Config() (Config, error) {
	cfg := Config{
		TokenMax:          s.TokenMax,
		Overlap:           s.Overlap,
		PreserveSentences: s.PreserveSentences,
		Deterministic:     s.Deterministic,
	}
	switch Kind(strings.ToLower(strings.TrimSpace(s.Mode))) {
	case KindSliding, "":
		cfg.Mode = Sliding{Window: s.Window, Overlap: s.Overlap}
	case KindFixed:
		cfg.Mode = Fixed{Size: s.Size, ByTokens: s.ByTokens}
	case KindSentence:
		cfg.Mode = Sentence{MaxSentences: s.MaxSentences}
	case KindRegex:
		cfg.Mode = Regex{Pattern: s.Pattern, MinChunkSize: s.MinChunkSize}
	case KindHTMLAware:
		cfg.Mode = HTMLAware{PreserveBlocks: s.PreserveBlocks, PreserveStructure: s.PreserveStructure}
	case KindTopic:
		cfg.Mode = Topic{
			Enabled:             !s.TopicDisabled,
			WindowSize:          s.WindowSize,
			SmoothingPasses:     s.SmoothingPasses,
			SimilarityThreshold: s.SimilarityThreshold,
		}
	default:
		return Config{}, cerrors.NewInvalidConfig("chunking.mode", "unknown chunking mode "+s.Mode)
	}
	return cfg, nil
}

// SettingsOf is the inverse of Settings.Config.
func SettingsOf(cfg Config) Settings {
	s := Settings{
		TokenMax:          cfg.TokenMax,
		Overlap:           cfg.Overlap,
		PreserveSentences: cfg.PreserveSentences,
		Deterministic:     cfg.Deterministic,
	}
	if cfg.Mode == nil {
		s.Mode = string(KindSliding)
		return s
	}
	s.Mode = string(cfg.Mode.Kind())
	switch m := cfg.Mode.(type) {
	case Sliding:
		s.Window = m.Window
		if m.Window > 0 {
			s.Overlap = m.Overlap
		}
	case Fixed:
		s.Size, s.ByTokens = m.Size, m.ByTokens
	case Sentence:
		s.MaxSentences = m.MaxSentences
	case Regex:
		s.Pattern, s.MinChunkSize = m.Pattern, m.MinChunkSize
	case HTMLAware:
		s.PreserveBlocks, s.PreserveStructure = m.PreserveBlocks, m.PreserveStructure
	case Topic:
		s.TopicDisabled = !m.Enabled
		s.WindowSize, s.SmoothingPasses, s.SimilarityThreshold = m.WindowSize, m.SmoothingPasses, m.SimilarityThreshold
	}
	return s
}
