// Package chunking segments extracted text into bounded chunks. Every mode is
// deterministic: boundaries depend only on the input text and the Config.
package chunking

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	cerrors "github.com/hyperifyio/contentcore/internal/errors"
)

// Kind names a chunking algorithm.
type Kind string

const (
	KindSliding   Kind = "sliding"
	KindFixed     Kind = "fixed"
	KindSentence  Kind = "sentence"
	KindRegex     Kind = "regex"
	KindHTMLAware Kind = "html_aware"
	KindTopic     Kind = "topic"
)

// Mode is one of Sliding, Fixed, Sentence, Regex, HTMLAware or Topic.
type Mode interface {
	Kind() Kind
}

// Sliding emits windows of Window tokens advancing by Window-Overlap. Zero
// values take the Config token budget.
type Sliding struct {
	Window  int `json:"window"`
	Overlap int `json:"overlap"`
}

// Fixed emits contiguous, non-overlapping slices of Size tokens or runes.
type Fixed struct {
	Size     int  `json:"size"`
	ByTokens bool `json:"by_tokens"`
}

// Sentence groups up to MaxSentences sentences per chunk.
type Sentence struct {
	MaxSentences int `json:"max_sentences"`
}

// Regex splits on Pattern and merges pieces shorter than MinChunkSize runes.
type Regex struct {
	Pattern      string `json:"pattern"`
	MinChunkSize int    `json:"min_chunk_size"`
}

// HTMLAware splits markup along block elements. PreserveBlocks keeps the
// original markup in chunk content; PreserveStructure keeps sectioning
// elements apart and records their path.
type HTMLAware struct {
	PreserveBlocks    bool `json:"preserve_blocks"`
	PreserveStructure bool `json:"preserve_structure"`
}

// Topic cuts at lexical-similarity minima between sentence windows. A
// disabled Topic mode chunks like Sliding with the Config token budget.
type Topic struct {
	Enabled         bool `json:"enabled"`
	WindowSize      int  `json:"window_size"`
	SmoothingPasses int  `json:"smoothing_passes"`
	// SimilarityThreshold, when positive, only allows cuts where the
	// smoothed similarity is below it.
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

func (Sliding) Kind() Kind   { return KindSliding }
func (Fixed) Kind() Kind     { return KindFixed }
func (Sentence) Kind() Kind  { return KindSentence }
func (Regex) Kind() Kind     { return KindRegex }
func (HTMLAware) Kind() Kind { return KindHTMLAware }
func (Topic) Kind() Kind     { return KindTopic }

// DefaultTokenMax applies when Config.TokenMax is not positive.
const DefaultTokenMax = 1200

// Config selects a mode and the shared token budget.
type Config struct {
	Mode              Mode
	TokenMax          int
	Overlap           int
	PreserveSentences bool
	Deterministic     bool
}

// DefaultConfig is sliding 1200/120 with sentence preservation.
func DefaultConfig() Config {
	return Config{Mode: Sliding{}, TokenMax: DefaultTokenMax, Overlap: 120, PreserveSentences: true, Deterministic: true}
}

// Chunk is one bounded segment of the input.
type Chunk struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	TokenCount int    `json:"token_count"`
	// StartOffset and EndOffset are byte offsets of Content in the input.
	StartOffset int      `json:"start_offset"`
	EndOffset   int      `json:"end_offset"`
	Index       int      `json:"index"`
	TotalChunks int      `json:"total_chunks"`
	Metadata    Metadata `json:"metadata"`
}

type Metadata struct {
	QualityScore         float64  `json:"quality_score"`
	ChunkType            string   `json:"chunk_type"`
	TopicKeywords        []string `json:"topic_keywords,omitempty"`
	HasCompleteSentences bool     `json:"has_complete_sentences"`
	SectionPath          string   `json:"section_path,omitempty"`
}

// Chunker segments text. Implementations are safe for concurrent use.
type Chunker interface {
	Chunk(text string) []Chunk
}

// New validates cfg and builds its chunker. Invalid patterns and
// non-positive sizes are reported here, never during Chunk.
func New(cfg Config) (Chunker, error) {
	if cfg.Mode == nil {
		cfg.Mode = Sliding{}
	}
	if cfg.TokenMax <= 0 {
		cfg.TokenMax = DefaultTokenMax
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	switch m := cfg.Mode.(type) {
	case Sliding:
		return newSliding(cfg, m)
	case Fixed:
		if m.Size <= 0 {
			return nil, cerrors.NewInvalidConfig("mode.size", "fixed size must be positive")
		}
		return &fixedChunker{size: m.Size, byTokens: m.ByTokens}, nil
	case Sentence:
		if m.MaxSentences <= 0 {
			return nil, cerrors.NewInvalidConfig("mode.max_sentences", "max sentences must be positive")
		}
		return &sentenceChunker{max: m.MaxSentences, tokenMax: cfg.TokenMax}, nil
	case Regex:
		return newRegex(m, cfg.TokenMax)
	case HTMLAware:
		return &htmlChunker{mode: m, tokenMax: cfg.TokenMax}, nil
	case Topic:
		if !m.Enabled {
			return newSliding(cfg, Sliding{})
		}
		return newTopic(cfg, m), nil
	}
	return nil, cerrors.NewInvalidConfig("mode", fmt.Sprintf("unsupported chunking mode %T", cfg.Mode))
}

// Split is New followed by Chunk.
func Split(text string, cfg Config) ([]Chunk, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return c.Chunk(text), nil
}

var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/hyperifyio/contentcore/chunk"))

// piece is a chunk before numbering.
type piece struct {
	start, end int
	content    string
	tokens     int
	meta       Metadata
}

// finalize numbers pieces and derives stable IDs from the input digest, the
// mode and each piece's position.
func finalize(text string, kind Kind, pieces []piece) []Chunk {
	if len(pieces) == 0 {
		return nil
	}
	sum := sha256.Sum256([]byte(text))
	digest := hex.EncodeToString(sum[:8])
	out := make([]Chunk, 0, len(pieces))
	for _, p := range pieces {
		if strings.TrimSpace(p.content) == "" {
			continue
		}
		out = append(out, Chunk{
			Content:     p.content,
			TokenCount:  p.tokens,
			StartOffset: p.start,
			EndOffset:   p.end,
			Metadata:    p.meta,
		})
	}
	for i := range out {
		out[i].Index = i
		out[i].TotalChunks = len(out)
		name := digest + ":" + string(kind) + ":" + strconv.Itoa(i) + ":" + strconv.Itoa(out[i].StartOffset) + ":" + strconv.Itoa(out[i].EndOffset)
		out[i].ID = uuid.NewSHA1(chunkNamespace, []byte(name)).String()
	}
	return out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
