package generation

import (
	"fmt"
	"strings"
)

// Chunk is a bounded window of consecutive pages' text submitted as one
// unit to a model backend. Page bounds are 1-based and inclusive.
type Chunk struct {
	Text      string
	PageStart int
	PageEnd   int
}

// ChunkPages partitions per-page text into consecutive groups of
// windowPages pages (the final group may be shorter), joining each group
// with a page break. Oversized groups are cut at exactly maxChars —
// dropping the tail is a deliberate cost tradeoff, word boundaries are not
// preserved.
func ChunkPages(pages []string, maxChars, windowPages int) ([]Chunk, error) {
	if windowPages <= 0 {
		return nil, fmt.Errorf("windowPages must be positive, got %d", windowPages)
	}
	if maxChars <= 0 {
		return nil, fmt.Errorf("maxChars must be positive, got %d", maxChars)
	}

	var chunks []Chunk
	for i := 0; i < len(pages); i += windowPages {
		end := i + windowPages
		if end > len(pages) {
			end = len(pages)
		}
		text := strings.Join(pages[i:end], "\n\n")
		if len(text) > maxChars {
			text = text[:maxChars]
		}
		chunks = append(chunks, Chunk{
			Text:      text,
			PageStart: i + 1,
			PageEnd:   end,
		})
	}
	return chunks, nil
}
