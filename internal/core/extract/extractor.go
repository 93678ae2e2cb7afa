package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
	"github.com/gen2brain/go-fitz"

	"github.com/markdave123-py/braindeck/internal/core"
)

// Extractor implements core.PageExtractor. PDFs go through MuPDF (go-fitz)
// so each page keeps its own text; everything else falls back to docconv,
// which flattens the document into a single page.
type Extractor struct {
	useReadability bool
}

var _ core.PageExtractor = (*Extractor)(nil)

func New(useReadability bool) *Extractor {
	return &Extractor{useReadability: useReadability}
}

func (e *Extractor) ExtractPages(ctx context.Context, data []byte, contentType string) ([]string, error) {
	if isPDF(data, contentType) {
		return e.extractPDF(ctx, data)
	}
	return e.extractFallback(data, contentType)
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) ([]string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.Text(n)
		if err != nil {
			// One unreadable page should not sink the rest of the document.
			continue
		}
		text = normalize(text)
		if text == "" {
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func (e *Extractor) extractFallback(data []byte, contentType string) ([]string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), contentType, e.useReadability)
	if err != nil {
		return nil, fmt.Errorf("docconv %s: %w", contentType, err)
	}
	body := normalize(res.Body)
	if body == "" {
		return nil, nil
	}
	return []string{body}, nil
}

func isPDF(data []byte, contentType string) bool {
	if strings.Contains(contentType, "pdf") {
		return true
	}
	return bytes.HasPrefix(data, []byte("%PDF"))
}

// normalize collapses runs of whitespace the way pdf text layers tend to
// need before the text is fed to a model.
func normalize(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
