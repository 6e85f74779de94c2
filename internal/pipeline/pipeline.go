// Package pipeline wires feature extraction, the gate, engine selection,
// extraction strategy and chunking into a single per-page flow.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/contentcore/internal/budget"
	"github.com/hyperifyio/contentcore/internal/chunking"
	"github.com/hyperifyio/contentcore/internal/engine"
	"github.com/hyperifyio/contentcore/internal/extract"
	"github.com/hyperifyio/contentcore/internal/features"
	"github.com/hyperifyio/contentcore/internal/gate"
	"github.com/hyperifyio/contentcore/internal/render"
	"github.com/hyperifyio/contentcore/internal/selection"
	"github.com/hyperifyio/contentcore/internal/strategy"
)

// ErrPDFInput is returned by Process for PDF bodies; byte-level PDF parsing
// happens outside this module.
var ErrPDFInput = errors.New("pipeline: pdf input must be converted to text first")

// Page is a fetched document as handed over by the fetch layer.
type Page struct {
	HTML        []byte
	URL         string
	ContentType string
}

// Result is the analysis of one page.
type Result struct {
	URL        string                   `json:"url"`
	RenderMode strategy.RenderMode      `json:"render_mode"`
	Features   features.ContentFeatures `json:"features"`
	Score      float64                  `json:"score"`
	Decision   gate.Decision            `json:"decision"`
	Engine     selection.EngineConfig   `json:"engine"`
	Strategy   strategy.Envelope        `json:"strategy"`
	Chunking   chunking.Settings        `json:"chunking"`

	strat    strategy.Strategy
	chunkCfg chunking.Config
}

// Prober performs the cheap raw fetch of a ProbesFirst decision.
type Prober interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// Renderer re-fetches a page through a headless browser.
type Renderer interface {
	Render(ctx context.Context, req render.Request) ([]byte, error)
}

// Analyzer holds the per-process configuration. The zero value is not usable;
// build one with New.
type Analyzer struct {
	Gate   gate.Gate
	Facade *selection.Facade
	Table  strategy.Table
	Flags  engine.Flags

	// Prober and Renderer are optional. Without them Process keeps the
	// markup it was given.
	Prober   Prober
	Renderer Renderer
	// WaitFor and ScrollSteps are forwarded with every render request.
	WaitFor     string
	ScrollSteps int
}

// New returns an Analyzer. A nil facade gets an uncached one; a nil table
// uses strategy.DefaultTable.
func New(g gate.Gate, facade *selection.Facade, table strategy.Table) *Analyzer {
	if facade == nil {
		facade = selection.NewFacade(nil, nil, selection.WithWeights(g.Weights))
	}
	if table == nil {
		table = strategy.DefaultTable()
	}
	return &Analyzer{Gate: g, Facade: facade, Table: table}
}

// Analyze computes features, the gate decision, the engine recommendation,
// the extraction strategy and the chunking configuration for p. It performs
// no I/O beyond the selection cache.
func (a *Analyzer) Analyze(ctx context.Context, p Page) Result {
	html := string(p.HTML)
	mode := strategy.DetectRenderMode(p.ContentType, p.HTML)
	f := features.Extract(html, p.URL)
	s := strategy.Select(p.URL)
	cfg := a.Table.For(mode)
	r := Result{
		URL:        p.URL,
		RenderMode: mode,
		Features:   f,
		Score:      a.Gate.Weights.Score(f),
		Decision:   a.Gate.Decide(f),
		Engine:     a.Facade.SelectEngine(ctx, selection.Criteria{HTML: html, URL: p.URL, Flags: a.Flags}),
		Strategy:   strategy.EnvelopeOf(s),
		Chunking:   chunking.SettingsOf(cfg),
		strat:      s,
		chunkCfg:   cfg,
	}
	log.Debug().Str("url", p.URL).Str("decision", r.Decision.String()).Str("engine", r.Engine.Engine.String()).
		Float64("score", r.Score).Str("strategy", string(s.Kind())).Msg("page analyzed")
	return r
}

// Processed is the outcome of Process.
type Processed struct {
	Result
	Probed   bool             `json:"probed"`
	Rendered bool             `json:"rendered"`
	Document extract.Document `json:"document"`
	Chunks   []chunking.Chunk `json:"chunks"`
}

// Process analyzes p, follows the gate decision through the prober and
// renderer when they are configured, extracts the content with the selected
// strategy and chunks it. Fetch and render failures degrade to the markup at
// hand; only invalid chunking configuration and PDF input are errors.
func (a *Analyzer) Process(ctx context.Context, p Page) (Processed, error) {
	res := a.Analyze(ctx, p)
	out := Processed{Result: res}
	if res.RenderMode == strategy.RenderPDF {
		return out, ErrPDFInput
	}
	if res.RenderMode == strategy.RenderMarkdown {
		return a.finish(out, p.HTML, extract.Document{Text: string(p.HTML)})
	}

	body := p.HTML
	needRender := res.Decision == gate.Headless
	if res.Decision == gate.ProbesFirst {
		probed, ok := a.probe(ctx, p.URL)
		if ok {
			out.Probed = true
			if a.Gate.ResolveProbe(features.Extract(string(probed), p.URL)) == gate.Raw {
				body = probed
			} else {
				needRender = true
			}
		} else {
			needRender = true
		}
	}
	if needRender {
		if rendered, ok := a.render(ctx, p.URL); ok {
			body = rendered
			out.Rendered = true
		}
	}
	if out.Probed || out.Rendered {
		out.Result = a.Analyze(ctx, Page{HTML: body, URL: p.URL, ContentType: "text/html"})
	}

	doc := a.extract(out.Result, body)
	if !out.Rendered && a.Renderer != nil {
		if engine.ShouldEscalateToHeadless(gate.MaxScore-out.Score, budget.CountTokens(doc.Text)) {
			if rendered, ok := a.render(ctx, p.URL); ok {
				body = rendered
				out.Rendered = true
				out.Result = a.Analyze(ctx, Page{HTML: body, URL: p.URL, ContentType: "text/html"})
				doc = a.extract(out.Result, body)
			}
		}
	}
	return a.finish(out, body, doc)
}

func (a *Analyzer) finish(out Processed, markup []byte, doc extract.Document) (Processed, error) {
	out.Document = doc
	c, err := chunking.New(out.chunkCfg)
	if err != nil {
		return out, fmt.Errorf("chunking %s: %w", out.RenderMode, err)
	}
	input := doc.Text
	if _, ok := out.chunkCfg.Mode.(chunking.HTMLAware); ok && out.RenderMode != strategy.RenderMarkdown {
		input = string(markup)
	}
	out.Chunks = c.Chunk(input)
	return out, nil
}

func (a *Analyzer) extract(r Result, body []byte) extract.Document {
	doc, err := extract.ForStrategy(r.strat).Extract(body, r.URL)
	if err != nil {
		log.Warn().Err(err).Str("url", r.URL).Str("strategy", string(r.strat.Kind())).Msg("extraction failed; using readability")
		doc, _ = extract.TrekExtractor{}.Extract(body, r.URL)
	}
	return doc
}

func (a *Analyzer) probe(ctx context.Context, url string) ([]byte, bool) {
	if a.Prober == nil {
		return nil, false
	}
	body, _, err := a.Prober.Get(ctx, url)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("probe fetch failed")
		return nil, false
	}
	return body, true
}

func (a *Analyzer) render(ctx context.Context, url string) ([]byte, bool) {
	if a.Renderer == nil {
		return nil, false
	}
	body, err := a.Renderer.Render(ctx, render.Request{URL: url, WaitFor: a.WaitFor, ScrollSteps: a.ScrollSteps})
	if err != nil {
		if errors.Is(err, render.ErrNoEndpoint) {
			log.Debug().Str("url", url).Msg("no render endpoint; keeping served markup")
		} else {
			log.Warn().Err(err).Str("url", url).Msg("headless render failed")
		}
		return nil, false
	}
	return body, true
}
