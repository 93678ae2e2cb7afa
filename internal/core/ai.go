package core

import "context"

// CompletionOptions tune a single model call.
//
// ForceJSON is tri-state: nil means "ask for strict JSON unless images are
// attached" (multimodal backends reject the constraint); an explicit value
// overrides that default.
type CompletionOptions struct {
	Model       string
	Temperature float64
	NumCtx      int
	ForceJSON   *bool
	Images      []string // base64-encoded attachments for vision models
}

// ModelClient is a uniform interface to one text-completion backend.
// CompleteJSON returns the raw JSON document the model produced, or an error:
// backend HTTP failures carry the status verbatim, and a response body that
// is not valid JSON yields ErrMalformedOutput.
type ModelClient interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions) ([]byte, error)
}
