package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/hyperifyio/contentcore/internal/chunking"
	"github.com/hyperifyio/contentcore/internal/gate"
	"github.com/hyperifyio/contentcore/internal/pipeline"
	"github.com/hyperifyio/contentcore/internal/strategy"
)

// runCLI runs the app with args and returns what it printed.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := newCLIApp()
	a.Writer = &out
	a.ErrWriter = &out
	a.Reader = strings.NewReader(stdin)
	full := append([]string{"contentcore", "--env-file", ""}, args...)
	err := a.Run(full)
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func exitCode(err error) int {
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}

func TestChunkCommand_JSON(t *testing.T) {
	p := writeFile(t, "input.txt", "abcdefghijklmnopqrstuvwxyz")
	out, err := runCLI(t, "", "--json", "chunk", "--mode", "fixed", "--size", "10", p)
	if err != nil {
		t.Fatalf("chunk: %v\n%s", err, out)
	}
	var chunks []chunking.Chunk
	if err := json.Unmarshal([]byte(out), &chunks); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(chunks) != 3 || chunks[0].Content != "abcdefghij" || chunks[2].TotalChunks != 3 {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}

func TestChunkCommand_StdinSummary(t *testing.T) {
	out, err := runCLI(t, "First sentence here. Second one follows. Third closes it.", "chunk", "--mode", "sentence", "--max-sentences", "2")
	if err != nil {
		t.Fatalf("chunk: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 chunks") || !strings.Contains(out, "sentence") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}

func TestChunkCommand_RenderModeTable(t *testing.T) {
	out, err := runCLI(t, "Some markdown text.\n\nAnother paragraph.", "--cache.backend", "none", "--json", "chunk", "--render-mode", "markdown")
	if err != nil {
		t.Fatalf("chunk: %v\n%s", err, out)
	}
	var chunks []chunking.Chunk
	if err := json.Unmarshal([]byte(out), &chunks); err != nil || len(chunks) == 0 {
		t.Fatalf("expected chunks, got %v\n%s", err, out)
	}
}

func TestChunkCommand_InvalidPattern(t *testing.T) {
	_, err := runCLI(t, "text", "chunk", "--mode", "regex", "--pattern", "(")
	if err == nil || exitCode(err) != 2 {
		t.Fatalf("expected configuration exit code 2, got %v", err)
	}
	_, err = runCLI(t, "text", "chunk", "--mode", "paragraphs")
	if exitCode(err) != 2 {
		t.Fatalf("expected unknown mode to be a configuration error, got %v", err)
	}
}

func TestStrategyCommand(t *testing.T) {
	out, err := runCLI(t, "", "--json", "strategy", "--render-mode", "pdf", "https://github.com/org/repo")
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	var got struct {
		Strategy strategy.Envelope `json:"strategy"`
		Chunking chunking.Settings `json:"chunking"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got.Strategy.Type != strategy.KindCSSJSON || got.Chunking.Mode != string(chunking.KindFixed) {
		t.Fatalf("unexpected output %+v", got)
	}

	text, err := runCLI(t, "", "strategy", "https://en.wikipedia.org/wiki/Test")
	if err != nil || !strings.Contains(text, "trek") {
		t.Fatalf("expected trek, got %v\n%s", err, text)
	}
	if _, err := runCLI(t, "", "strategy"); exitCode(err) != 2 {
		t.Fatalf("missing URL should exit 2, got %v", err)
	}
}

func TestAnalyzeCommand_File(t *testing.T) {
	p := writeFile(t, "spa.html", `<div id="root"></div><script src="react.js"></script>`)
	out, err := runCLI(t, "", "--cache.backend", "none", "--json", "analyze", "--file", p, "--url", "https://example.com/app")
	if err != nil {
		t.Fatalf("analyze: %v\n%s", err, out)
	}
	var r pipeline.Result
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if r.Decision != gate.Headless || r.Features.SPAMarkerCount == 0 {
		t.Fatalf("unexpected analysis %+v", r)
	}

	text, err := runCLI(t, "", "--cache.backend", "none", "analyze", "--file", p)
	if err != nil || !strings.Contains(text, "headless") {
		t.Fatalf("expected readable output, got %v\n%s", err, text)
	}
}

func TestAnalyzeCommand_FlagsBeatEnvironment(t *testing.T) {
	t.Setenv("GATE_LO_THRESHOLD", "0.95")
	p := writeFile(t, "page.html", "<p>hello</p>")
	if _, err := runCLI(t, "", "--cache.backend", "none", "analyze", "--file", p); exitCode(err) != 2 {
		t.Fatalf("lo above default hi should be rejected, got %v", err)
	}
	if out, err := runCLI(t, "", "--cache.backend", "none", "--gate.hi", "0.99", "analyze", "--file", p); err != nil {
		t.Fatalf("explicit hi should make the config valid: %v\n%s", err, out)
	}
}

func TestProcessCommand_File(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><article><h1>Notes</h1>")
	for i := 0; i < 8; i++ {
		b.WriteString("<p>The lighthouse keeper logs the weather every hour and files a report at dawn.</p>")
	}
	b.WriteString("</article></body></html>")
	p := writeFile(t, "article.html", b.String())
	out, err := runCLI(t, "", "--cache.backend", "none", "--json", "process", "--file", p, "--url", "http://127.0.0.1:1/notes")
	if err != nil {
		t.Fatalf("process: %v\n%s", err, out)
	}
	var got pipeline.Processed
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(got.Chunks) == 0 || !strings.Contains(got.Document.Text, "lighthouse keeper") {
		t.Fatalf("unexpected processing result: %+v", got)
	}
}

func TestEnginesCommand(t *testing.T) {
	out, err := runCLI(t, "", "engines")
	if err != nil {
		t.Fatalf("engines: %v", err)
	}
	for _, name := range []string{"auto", "raw", "wasm", "headless", "3,000ms"} {
		if !strings.Contains(out, name) {
			t.Fatalf("missing %q in:\n%s", name, out)
		}
	}
}

func TestGlobalFlagsParse(t *testing.T) {
	t.Cleanup(func() { setLogLevel(false) })

	out, err := runCLI(t, "", "-v")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "contentcore version") {
		t.Fatalf("unexpected version output:\n%s", out)
	}

	out, err = runCLI(t, "", "--help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(out, "--verbose") || !strings.Contains(out, "engines") {
		t.Fatalf("unexpected help output:\n%s", out)
	}

	if out, err := runCLI(t, "", "--verbose", "engines"); err != nil || !strings.Contains(out, "headless") {
		t.Fatalf("verbose engines: %v\n%s", err, out)
	}
}

func TestCachePurgeCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, "", "--cache.backend", "disk", "--cache.dir", dir, "--json", "cache", "purge", "--max-age", "1h")
	if err != nil {
		t.Fatalf("purge: %v\n%s", err, out)
	}
	var got map[string]int
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got["removed"] != 0 {
		t.Fatalf("expected nothing removed from an empty cache, got %v", got)
	}
}
