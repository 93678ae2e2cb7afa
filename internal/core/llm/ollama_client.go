package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/markdave123-py/braindeck/internal/core"
)

// OllamaClient talks to a locally reachable Ollama chat endpoint.
type OllamaClient struct {
	base string
	http *http.Client
}

var _ core.ModelClient = (*OllamaClient)(nil)

func NewOllamaClient(baseURL string, timeout time.Duration) *OllamaClient {
	return &OllamaClient{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
	Format   string          `json:"format,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx"`
}

type ollamaResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

func (c *OllamaClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, opts core.CompletionOptions) ([]byte, error) {
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = 0.2
	}
	numCtx := opts.NumCtx
	if numCtx == 0 {
		numCtx = 8192
	}

	req := ollamaRequest{
		Model:  opts.Model,
		Stream: false,
		Messages: []ollamaMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt, Images: opts.Images},
		},
		Options: ollamaOptions{Temperature: temperature, NumCtx: numCtx},
	}

	// Multimodal backends reject format=json, so only force it when no
	// images ride along, unless the caller explicitly decided.
	hasImages := len(opts.Images) > 0
	forced := opts.ForceJSON
	if (forced == nil && !hasImages) || (forced != nil && *forced) {
		req.Format = "json"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama at %s: %w: %v", c.base, core.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ollama response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound && strings.Contains(string(raw), "not found") {
			return nil, fmt.Errorf("model %q not found, install it with: ollama pull %s", opts.Model, opts.Model)
		}
		return nil, fmt.Errorf("ollama %d: %s", resp.StatusCode, string(raw))
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedOutput, err)
	}

	content := strings.TrimSpace(parsed.Message.Content)
	if content == "" || !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("%w: response is not valid JSON", core.ErrMalformedOutput)
	}
	return []byte(content), nil
}
