package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/braindeck/internal/core"
)

func ollamaReply(content string) string {
	b, _ := json.Marshal(map[string]any{"message": map[string]string{"content": content}})
	return string(b)
}

func TestCompleteJSONRequestShape(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(ollamaReply(`{"suggestions":[]}`)))
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 5*time.Second)
	out, err := c.CompleteJSON(context.Background(), "sys", "user", core.CompletionOptions{Model: "qwen2.5:7b-instruct"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"suggestions":[]}`, string(out))

	assert.Equal(t, "qwen2.5:7b-instruct", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, "json", got.Format)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "sys", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, 0.2, got.Options.Temperature)
	assert.Equal(t, 8192, got.Options.NumCtx)
}

func TestCompleteJSONFormatOmittedWithImages(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(ollamaReply(`{}`)))
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 5*time.Second)
	_, err := c.CompleteJSON(context.Background(), "s", "u", core.CompletionOptions{
		Model:  "qwen2.5vl:7b",
		Images: []string{"aGVsbG8="},
	})
	require.NoError(t, err)
	assert.Empty(t, got.Format)
	assert.Equal(t, []string{"aGVsbG8="}, got.Messages[1].Images)
}

func TestCompleteJSONForceJSONOverridesImages(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(ollamaReply(`{}`)))
	}))
	defer srv.Close()

	force := true
	c := NewOllamaClient(srv.URL, 5*time.Second)
	_, err := c.CompleteJSON(context.Background(), "s", "u", core.CompletionOptions{
		Model:     "m",
		Images:    []string{"aGVsbG8="},
		ForceJSON: &force,
	})
	require.NoError(t, err)
	assert.Equal(t, "json", got.Format)
}

func TestCompleteJSONModelNotFoundHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model \"nope\" not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 5*time.Second)
	_, err := c.CompleteJSON(context.Background(), "s", "u", core.CompletionOptions{Model: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama pull nope")
}

func TestCompleteJSONServerErrorVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of memory", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 5*time.Second)
	_, err := c.CompleteJSON(context.Background(), "s", "u", core.CompletionOptions{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama 500")
	assert.Contains(t, err.Error(), "out of memory")
}

func TestCompleteJSONUnreachable(t *testing.T) {
	c := NewOllamaClient("http://127.0.0.1:1", time.Second)
	_, err := c.CompleteJSON(context.Background(), "s", "u", core.CompletionOptions{Model: "m"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnreachable)
}

func TestCompleteJSONMalformedContent(t *testing.T) {
	for name, content := range map[string]string{
		"prose":   "Here are your flashcards!",
		"empty":   "",
		"cut off": `{"suggestions":[`,
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(ollamaReply(content)))
		}))
		c := NewOllamaClient(srv.URL, 5*time.Second)
		_, err := c.CompleteJSON(context.Background(), "s", "u", core.CompletionOptions{Model: "m"})
		srv.Close()
		require.Error(t, err, name)
		assert.ErrorIs(t, err, core.ErrMalformedOutput, name)
	}
}
