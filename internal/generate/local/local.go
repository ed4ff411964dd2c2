// Package local implements the Generator interface using self-hosted models.
//
// It supports Ollama's /api/generate endpoint and any OpenAI-compatible chat
// endpoint (Ollama's /v1/chat/completions, vLLM, llama.cpp server).
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nadzzz/mathvoice/internal/config"
	"github.com/nadzzz/mathvoice/internal/generate"
	"github.com/nadzzz/mathvoice/internal/upstream"
)

// Generator uses a self-hosted model for script generation.
type Generator struct {
	endpoint string
	model    string
	client   *http.Client
}

// New creates a new local generator from config.
func New(cfg config.LocalConfig) *Generator {
	model := cfg.Model
	if model == "" {
		model = "llama3"
	}
	return &Generator{
		endpoint: cfg.Endpoint,
		model:    model,
		client:   &http.Client{},
	}
}

// Name returns the backend identifier.
func (g *Generator) Name() string { return "local" }

// Generate sends the prompt to the local endpoint. If the endpoint ends with
// /api/generate the Ollama request shape is used, otherwise chat completions.
func (g *Generator) Generate(ctx context.Context, prompt string) (*generate.Result, error) {
	var reqBody map[string]any
	if strings.HasSuffix(g.endpoint, "/api/generate") {
		reqBody = map[string]any{
			"model":  g.model,
			"prompt": prompt,
			"stream": false,
		}
	} else {
		reqBody = map[string]any{
			"model": g.model,
			"messages": []map[string]string{
				{"role": "user", "content": prompt},
			},
			"stream": false,
		}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("local LLM request: %w", err)
	}
	defer resp.Body.Close()

	if !upstream.IsSuccess(resp.StatusCode) {
		return nil, upstream.FromResponse("local-llm", resp)
	}

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading LLM response: %w", err)
	}

	content := extractContent(respData)
	if content == "" {
		return nil, fmt.Errorf("empty response from local LLM")
	}

	slog.Debug("local generation complete", "model", g.model, "text_length", len(content))
	return &generate.Result{Text: content}, nil
}

// Close is a no-op for the local generator.
func (g *Generator) Close() error { return nil }

func extractContent(data []byte) string {
	// OpenAI-compatible format: {"choices": [{"message": {"content": "..."}}]}
	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &chatResp); err == nil && len(chatResp.Choices) > 0 {
		return chatResp.Choices[0].Message.Content
	}

	// Ollama format: {"response": "..."}
	var ollamaResp struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(data, &ollamaResp); err == nil && ollamaResp.Response != "" {
		return ollamaResp.Response
	}

	return strings.TrimSpace(string(data))
}
