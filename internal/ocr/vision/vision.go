// Package vision implements the OCR Recognizer with a vision-capable chat
// model behind an OpenAI-compatible API (OpenRouter, Gemini, OpenAI).
//
// The image is sent inline as a data URL together with a transcription
// prompt; the model's reply becomes the recognized text.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nadzzz/mathvoice/internal/config"
	"github.com/nadzzz/mathvoice/internal/ocr"
	"github.com/nadzzz/mathvoice/internal/upstream"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

const transcribePrompt = `Transcribe all mathematical content in this image.
Return plain text with every formula written in LaTeX between \( and \).
Do not explain, solve or summarize anything. If the image has no readable content, return nothing.`

// Recognizer uses a vision chat model as OCR.
type Recognizer struct {
	apiKey  string
	chatURL string
	model   string
	client  *http.Client
}

// New creates a vision recognizer from config.
func New(cfg config.VisionConfig) *Recognizer {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return &Recognizer{
		apiKey:  cfg.APIKey,
		chatURL: base + "/chat/completions",
		model:   cfg.Model,
		client:  &http.Client{},
	}
}

// Name returns the backend identifier.
func (r *Recognizer) Name() string { return "vision" }

// Recognize asks the model to transcribe the image.
func (r *Recognizer) Recognize(ctx context.Context, image []byte, contentType string) (*ocr.Result, error) {
	reqBody := chatRequest{
		Model: r.model,
		Messages: []message{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: transcribePrompt},
				{Type: "image_url", ImageURL: &imageURL{
					URL: "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshalling vision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.chatURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating vision request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Title", "mathvoice")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()

	if !upstream.IsSuccess(resp.StatusCode) {
		return nil, upstream.FromResponse("vision-ocr", resp)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decoding vision response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from vision API")
	}

	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	slog.Debug("vision recognition complete", "model", r.model, "text_length", len(text))
	return &ocr.Result{Text: text}, nil
}

// Close is a no-op for the vision recognizer.
func (r *Recognizer) Close() error { return nil }

// --- Internal types ---

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type message struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
