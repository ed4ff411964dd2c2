// Package generate defines the interface for text generation backends.
//
// A generator takes one prompt and returns the model's text. mathvoice ships
// with two backends: OpenAI-compatible chat completions (Gemini, OpenAI,
// OpenRouter) and a self-hosted endpoint (Ollama, llama.cpp, vLLM).
package generate

import "context"

// Result holds the generated text.
type Result struct {
	Text string
}

// Generator produces text from a single prompt.
type Generator interface {
	// Name returns the backend identifier (e.g., "openai", "local").
	Name() string

	// Generate sends the prompt and returns the raw model text.
	Generate(ctx context.Context, prompt string) (*Result, error)

	// Close releases any resources held by the generator.
	Close() error
}
