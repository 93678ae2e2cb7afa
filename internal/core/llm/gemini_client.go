package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markdave123-py/braindeck/internal/core"
)

// GeminiClient is the cloud completion strategy. Responses are requested
// with a JSON MIME type so the backend returns a parseable document.
type GeminiClient struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
}

var _ core.ModelClient = (*GeminiClient)(nil)

func NewGeminiClient(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, &core.ConfigError{Key: "GEMINI_API_KEY"}
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &GeminiClient{client: cl, modelName: modelName, timeout: timeout}, nil
}

func (g *GeminiClient) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, opts core.CompletionOptions) ([]byte, error) {
	modelName := opts.Model
	if modelName == "" {
		modelName = g.modelName
	}
	temperature := float32(opts.Temperature)
	if temperature == 0 {
		temperature = 0.2
	}

	m := g.client.GenerativeModel(modelName)
	m.SetTemperature(temperature)
	m.ResponseMIMEType = "application/json"

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// Single user turn carrying both prompts, the way the generation
	// endpoint expects.
	resp, err := m.GenerateContent(callCtx, genai.Text(systemPrompt+"\n\n"+userPrompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: empty gemini response", core.ErrMalformedOutput)
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}

	content := strings.TrimSpace(b.String())
	if content == "" || !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("%w: response is not valid JSON", core.ErrMalformedOutput)
	}
	return []byte(content), nil
}
