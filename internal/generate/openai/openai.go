// Package openai implements the Generator interface against any
// OpenAI-compatible Chat Completions API.
//
// The default configuration points at Gemini's OpenAI-compatible endpoint,
// but OpenAI and OpenRouter work by changing the base URL and model.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nadzzz/mathvoice/internal/config"
	"github.com/nadzzz/mathvoice/internal/generate"
	"github.com/nadzzz/mathvoice/internal/upstream"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// Generator uses a chat completions endpoint for script generation.
type Generator struct {
	apiKey      string
	chatURL     string
	model       string
	temperature float64
	client      *http.Client
}

// New creates a new OpenAI-compatible generator from config.
func New(cfg config.OpenAIConfig) *Generator {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return &Generator{
		apiKey:      cfg.APIKey,
		chatURL:     base + "/chat/completions",
		model:       cfg.Model,
		temperature: cfg.Temperature,
		client:      &http.Client{},
	}
}

// Name returns the backend identifier.
func (g *Generator) Name() string { return "openai" }

// Generate sends the prompt as a single user message and returns the reply text.
func (g *Generator) Generate(ctx context.Context, prompt string) (*generate.Result, error) {
	reqBody := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: g.temperature,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshalling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.chatURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if !upstream.IsSuccess(resp.StatusCode) {
		return nil, upstream.FromResponse("generation", resp)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from chat API")
	}

	text := chatResp.Choices[0].Message.Content
	slog.Debug("generation complete", "model", g.model, "text_length", len(text))
	return &generate.Result{Text: text}, nil
}

// Close is a no-op for the OpenAI generator.
func (g *Generator) Close() error { return nil }

// --- Internal types ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
