package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/contentcore/internal/chunking"
	cerrors "github.com/hyperifyio/contentcore/internal/errors"
)

func TestSelectByHost(t *testing.T) {
	cases := []struct {
		url  string
		want Kind
	}{
		{"https://github.com/golang/go/issues/1", KindCSSJSON},
		{"https://gist.github.com/someone/abc", KindCSSJSON},
		{"https://en.wikipedia.org/wiki/Go", KindTrek},
		{"https://medium.com/@a/post-1", KindCSSJSON},
		{"https://dev.to/someone/post", KindCSSJSON},
		{"https://www.reddit.com/r/golang", KindRegex},
		{"https://news.ycombinator.com/item?id=1", KindRegex},
		{"https://example.com/", KindTrek},
		{"not a url", KindTrek},
		{"", KindTrek},
		{"://bad", KindTrek},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Select(tc.url).Kind(), tc.url)
	}
}

func TestSelectUsesDistinctSelectorSets(t *testing.T) {
	gh, ok := Select("https://github.com/x").(*CSSJSON)
	require.True(t, ok)
	blog, ok := Select("https://medium.com/x").(*CSSJSON)
	require.True(t, ok)
	assert.Contains(t, gh.Selectors["content"], ".markdown-body")
	assert.Contains(t, blog.Selectors["content"], "article")
	assert.Equal(t, []string{"author", "content", "date", "title"}, gh.Fields())

	news, ok := Select("https://news.ycombinator.com/").(*Regex)
	require.True(t, ok)
	require.Len(t, news.Compiled(), 3)
	assert.True(t, news.Compiled()[0].Required)
	assert.Equal(t, "comment_count", news.Compiled()[2].Field)
}

func TestSelectReturnsIndependentCopies(t *testing.T) {
	gh, ok := Select("https://github.com/org/repo").(*CSSJSON)
	require.True(t, ok)
	gh.Selectors["title"] = "changed"
	gh.Selectors["extra"] = "div"
	delete(gh.Selectors, "date")

	again := Select("https://github.com/org/repo").(*CSSJSON)
	assert.Equal(t, []string{"author", "content", "date", "title"}, again.Fields())
	assert.NotEqual(t, "changed", again.Selectors["title"])
	assert.NotContains(t, again.Selectors, "extra")
	assert.Equal(t, []string{"author", "content", "date", "title"}, gh.Fields(), "fields follow the compiled selectors")

	news, ok := Select("https://news.ycombinator.com/item?id=1").(*Regex)
	require.True(t, ok)
	news.Patterns[0].Pattern = "broken("
	compiled := news.Compiled()
	compiled[0].Field = "other"

	fresh := Select("https://news.ycombinator.com/item?id=1").(*Regex)
	assert.Equal(t, `<title>([^<]+)</title>`, fresh.Patterns[0].Pattern)
	assert.Equal(t, "title", fresh.Compiled()[0].Field)
}

func TestNewCSSJSONRejectsBadSelectors(t *testing.T) {
	_, err := NewCSSJSON(map[string]string{"title": "h1", "body": "div[[["})
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, cerrors.ErrInvalidSelector))

	_, err = NewCSSJSON(nil)
	assert.True(t, cerrors.Is(err, cerrors.ErrInvalidConfig))

	s, err := NewCSSJSON(map[string]string{"title": "h1.title"})
	require.NoError(t, err)
	_, ok := s.Matcher("title")
	assert.True(t, ok)
	_, ok = s.Matcher("missing")
	assert.False(t, ok)
}

func TestNewRegexRejectsBadPatterns(t *testing.T) {
	_, err := NewRegex([]Pattern{{Name: "x", Pattern: "(unclosed"}})
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, cerrors.ErrInvalidPattern))

	_, err = NewRegex(nil)
	assert.True(t, cerrors.Is(err, cerrors.ErrInvalidConfig))
}

func TestEnvelopeRoundTrip(t *testing.T) {
	inputs := []Strategy{
		Trek{},
		Select("https://github.com/x"),
		Select("https://reddit.com/r/x"),
		LLM{Model: "small", PromptTemplate: "Extract {{.Fields}}"},
	}
	for _, s := range inputs {
		data, err := Marshal(s)
		require.NoError(t, err)
		back, err := Unmarshal(data)
		require.NoError(t, err)
		assert.Equal(t, s.Kind(), back.Kind())
		assert.Equal(t, EnvelopeOf(s), EnvelopeOf(back))
	}

	_, err := Unmarshal([]byte(`{"type":"css_json","selectors":{"a":"[["}}`))
	assert.True(t, cerrors.Is(err, cerrors.ErrInvalidSelector))
	_, err = Unmarshal([]byte(`{"type":"bogus"}`))
	assert.True(t, cerrors.Is(err, cerrors.ErrInvalidConfig))
	_, err = Unmarshal([]byte(`{`))
	assert.Error(t, err)
}

func TestSelectChunkingTable(t *testing.T) {
	for _, m := range []RenderMode{RenderHTML, RenderStatic, RenderDynamic, RenderAdaptive} {
		cfg := SelectChunking(m)
		assert.Equal(t, chunking.Sliding{}, cfg.Mode, m)
		assert.Equal(t, 1200, cfg.TokenMax)
		assert.Equal(t, 120, cfg.Overlap)
		assert.True(t, cfg.PreserveSentences)
		assert.True(t, cfg.Deterministic)
	}

	pdf := SelectChunking(RenderPDF)
	assert.Equal(t, chunking.Fixed{Size: 2000, ByTokens: true}, pdf.Mode)
	assert.Equal(t, 200, pdf.Overlap)

	md := SelectChunking(RenderMarkdown)
	topic, ok := md.Mode.(chunking.Topic)
	require.True(t, ok)
	assert.True(t, topic.Enabled)
	assert.InDelta(t, 0.7, topic.SimilarityThreshold, 1e-9)
	assert.Equal(t, 1500, md.TokenMax)
	assert.Equal(t, 150, md.Overlap)

	assert.Equal(t, SelectChunking(RenderHTML), SelectChunking(RenderMode("unknown")))

	for _, m := range RenderModes() {
		_, err := chunking.New(SelectChunking(m))
		require.NoError(t, err, m)
	}
}

func TestTableOverrides(t *testing.T) {
	table, err := DefaultTable().WithOverrides(map[string]chunking.Settings{
		"pdf": {Mode: "sentence", MaxSentences: 4, TokenMax: 500},
	})
	require.NoError(t, err)
	assert.Equal(t, chunking.Sentence{MaxSentences: 4}, table.For(RenderPDF).Mode)
	assert.Equal(t, chunking.Sliding{}, table.For(RenderHTML).Mode)

	_, err = DefaultTable().WithOverrides(map[string]chunking.Settings{"epub": {Mode: "sliding"}})
	assert.True(t, cerrors.Is(err, cerrors.ErrInvalidConfig))

	_, err = DefaultTable().WithOverrides(map[string]chunking.Settings{"html": {Mode: "regex", Pattern: "("}})
	assert.True(t, cerrors.Is(err, cerrors.ErrInvalidPattern))
}

func TestRenderModeDetection(t *testing.T) {
	assert.Equal(t, RenderPDF, DetectRenderMode("application/octet-stream", []byte("%PDF-1.7 ...")))
	assert.Equal(t, RenderPDF, DetectRenderMode("application/pdf", nil))
	assert.Equal(t, RenderMarkdown, DetectRenderMode("text/markdown; charset=utf-8", []byte("# hi")))
	assert.Equal(t, RenderHTML, DetectRenderMode("text/html", []byte("<html>")))
	assert.Equal(t, RenderHTML, DetectRenderMode("", nil))

	m, err := ParseRenderMode(" Markdown ")
	require.NoError(t, err)
	assert.Equal(t, RenderMarkdown, m)
	_, err = ParseRenderMode("epub")
	assert.Error(t, err)
}
