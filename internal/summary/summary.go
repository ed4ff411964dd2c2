// Package summary turns recognized math content into a speakable lecture script.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nadzzz/mathvoice/internal/generate"
)

// ErrEmptyContent is returned when there is no text to summarize.
var ErrEmptyContent = errors.New("no content to summarize")

// MaxWords is the script length the model is asked to stay within. It is a
// request in the prompt, not something the generator enforces.
const MaxWords = 240

const instructions = `You are a STEM educator recording a short audio lesson.
The text below contains mathematical content extracted from an image or PDF.
Summarize it and write it as a script to be read aloud to a student, no longer than %d words.
Write every expression the way a teacher would say it; do not use LaTeX or symbols that cannot be spoken.
When you mention an equation, also give it once in MathML.
Here is the content:`

// GenerationError wraps a failure of the generation collaborator.
type GenerationError struct {
	Backend string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation via %s: %v", e.Backend, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator builds lecture prompts and delegates them to a text generator.
type Generator struct {
	gen generate.Generator
}

// New creates a summary generator backed by gen.
func New(gen generate.Generator) *Generator {
	return &Generator{gen: gen}
}

// Summarize asks the generation backend for a lecture script about content,
// written in language when it is non-empty. The model's text is returned as is.
func (g *Generator) Summarize(ctx context.Context, content, language string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}

	res, err := g.gen.Generate(ctx, BuildPrompt(content, language))
	if err != nil {
		return "", &GenerationError{Backend: g.gen.Name(), Err: err}
	}
	return res.Text, nil
}

// BuildPrompt assembles the full prompt sent to the generation backend.
func BuildPrompt(content, language string) string {
	var sb strings.Builder
	if language != "" {
		fmt.Fprintf(&sb, "Write your entire answer in %s, translating the content if needed.\n\n", language)
	}
	fmt.Fprintf(&sb, instructions, MaxWords)
	sb.WriteString("\n\n")
	sb.WriteString(content)
	return sb.String()
}
