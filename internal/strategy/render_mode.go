package strategy

import (
	"bytes"
	"fmt"
	"mime"
	"strings"

	cerrors "github.com/hyperifyio/contentcore/internal/errors"
)

// RenderMode describes how a page was obtained and therefore what kind of
// text the chunker receives.
type RenderMode string

const (
	RenderHTML     RenderMode = "html"
	RenderPDF      RenderMode = "pdf"
	RenderMarkdown RenderMode = "markdown"
	RenderStatic   RenderMode = "static"
	RenderDynamic  RenderMode = "dynamic"
	RenderAdaptive RenderMode = "adaptive"
)

// RenderModes lists every mode in table order.
func RenderModes() []RenderMode {
	return []RenderMode{RenderHTML, RenderPDF, RenderMarkdown, RenderStatic, RenderDynamic, RenderAdaptive}
}

func ParseRenderMode(s string) (RenderMode, error) {
	m := RenderMode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range RenderModes() {
		if m == known {
			return m, nil
		}
	}
	return "", cerrors.NewInvalidConfig("render_mode", fmt.Sprintf("unknown render mode %q", s))
}

var pdfMagic = []byte("%PDF-")

// DetectRenderMode maps a response to a render mode. PDF bodies are
// recognized by their magic bytes even when mislabeled.
func DetectRenderMode(contentType string, body []byte) RenderMode {
	if bytes.HasPrefix(bytes.TrimLeft(body, " \t\r\n"), pdfMagic) {
		return RenderPDF
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch mt {
	case "application/pdf":
		return RenderPDF
	case "text/markdown", "text/x-markdown":
		return RenderMarkdown
	}
	return RenderHTML
}
