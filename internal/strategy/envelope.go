package strategy

import (
	"encoding/json"
	"fmt"

	cerrors "github.com/hyperifyio/contentcore/internal/errors"
)

// Envelope is the serialized form of a Strategy.
type Envelope struct {
	Type           Kind              `json:"type"`
	Selectors      map[string]string `json:"selectors,omitempty"`
	Patterns       []Pattern         `json:"patterns,omitempty"`
	Model          string            `json:"model,omitempty"`
	PromptTemplate string            `json:"prompt_template,omitempty"`
}

// EnvelopeOf describes s.
func EnvelopeOf(s Strategy) Envelope {
	switch v := s.(type) {
	case *CSSJSON:
		return Envelope{Type: KindCSSJSON, Selectors: v.Selectors}
	case *Regex:
		return Envelope{Type: KindRegex, Patterns: v.Patterns}
	case LLM:
		return Envelope{Type: KindLLM, Model: v.Model, PromptTemplate: v.PromptTemplate}
	}
	return Envelope{Type: KindTrek}
}

// Strategy rebuilds the strategy, compiling selectors and patterns.
func (e Envelope) Strategy() (Strategy, error) {
	switch e.Type {
	case KindTrek, "":
		return Trek{}, nil
	case KindCSSJSON:
		return NewCSSJSON(e.Selectors)
	case KindRegex:
		return NewRegex(e.Patterns)
	case KindLLM:
		return LLM{Model: e.Model, PromptTemplate: e.PromptTemplate}, nil
	}
	return nil, cerrors.NewInvalidConfig("type", fmt.Sprintf("unknown strategy type %q", e.Type))
}

func Marshal(s Strategy) ([]byte, error) {
	return json.Marshal(EnvelopeOf(s))
}

func Unmarshal(data []byte) (Strategy, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode strategy: %w", err)
	}
	return e.Strategy()
}
