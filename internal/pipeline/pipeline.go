// Package pipeline turns an image of mathematical content into a spoken lecture.
//
// A run is a strictly sequential chain: OCR → summary → equation extraction →
// speech synthesis. Every collaborator is injected at construction, each
// outbound call is bounded by its own timeout, and no stage is retried. Any
// failure in a required stage fails the whole run; equation extraction is
// supplementary and degrades to an empty list instead.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nadzzz/mathvoice/internal/equation"
	"github.com/nadzzz/mathvoice/internal/ocr"
	"github.com/nadzzz/mathvoice/internal/summary"
	"github.com/nadzzz/mathvoice/internal/tts"
	"github.com/nadzzz/mathvoice/internal/upstream"
	"github.com/nadzzz/mathvoice/internal/voice"
)

const imageMediaPrefix = "image/"

// Options tunes a Pipeline.
type Options struct {
	// ExtractEquations enables equation parsing. When false every result has
	// an empty equation list.
	ExtractEquations bool

	// Per-collaborator timeouts. Zero means no timeout beyond the caller's context.
	OCRTimeout        time.Duration
	GenerationTimeout time.Duration
	SynthesisTimeout  time.Duration
}

// Input is one lecture request.
type Input struct {
	Image       []byte
	ContentType string
	VoiceID     string
}

// Result is a completed lecture. It is built once per run and not modified.
type Result struct {
	Transcript  string
	Audio       []byte
	AudioFormat string
	Equations   []equation.Equation
	Voice       voice.Voice
}

// Pipeline runs lecture requests. It holds no per-request state and is safe
// for concurrent use.
type Pipeline struct {
	recognizer  ocr.Recognizer
	summarizer  *summary.Generator
	voices      *voice.Registry
	synthesizer tts.Synthesizer
	opts        Options
}

// New creates a pipeline from its collaborators.
func New(recognizer ocr.Recognizer, summarizer *summary.Generator, voices *voice.Registry, synthesizer tts.Synthesizer, opts Options) *Pipeline {
	return &Pipeline{
		recognizer:  recognizer,
		summarizer:  summarizer,
		voices:      voices,
		synthesizer: synthesizer,
		opts:        opts,
	}
}

// Run processes one request end to end. It returns either a complete Result
// or an *Error, never both.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	logger := slog.With("voice_id", in.VoiceID, "content_type", in.ContentType)

	// Step 1: validate input.
	if len(in.Image) == 0 {
		return nil, newError(KindInvalidInput, "image is empty", 0, nil)
	}
	if !strings.HasPrefix(strings.ToLower(in.ContentType), imageMediaPrefix) {
		return nil, newError(KindInvalidInput, "content type "+quote(in.ContentType)+" is not an image", 0, nil)
	}

	// Step 2: resolve the voice before any collaborator is called.
	v, err := p.voices.Resolve(in.VoiceID)
	if err != nil {
		return nil, newError(KindUnknownVoice, "voice "+quote(in.VoiceID)+" is not supported", 0, err)
	}

	// Step 3: OCR.
	text, err := p.recognize(ctx, in)
	if err != nil {
		return nil, err
	}
	logger.Debug("ocr complete", "backend", p.recognizer.Name(), "text_length", len(text))

	// Step 4: summary script in the voice's language.
	script, err := p.summarize(ctx, text, v.Language)
	if err != nil {
		return nil, err
	}
	logger.Debug("summary complete", "language", v.Language, "script_length", len(script))

	// Step 5: equations from the OCR text (best effort).
	equations := p.extractEquations(text, logger)

	// Step 6: speech.
	audio, err := p.synthesize(ctx, script, v)
	if err != nil {
		return nil, err
	}
	logger.Debug("synthesis complete", "backend", p.synthesizer.Name(), "audio_bytes", len(audio.Audio), "format", audio.Format)

	// Step 7: assemble.
	return &Result{
		Transcript:  script,
		Audio:       audio.Audio,
		AudioFormat: audio.Format,
		Equations:   equations,
		Voice:       v,
	}, nil
}

func (p *Pipeline) recognize(ctx context.Context, in Input) (string, error) {
	stageCtx, cancel := withTimeout(ctx, p.opts.OCRTimeout)
	defer cancel()

	res, err := p.recognizer.Recognize(stageCtx, in.Image, in.ContentType)
	if err != nil {
		return "", serviceError(KindOCRService, "ocr via "+p.recognizer.Name()+" failed", err)
	}
	if res == nil {
		return "", nil
	}
	return res.Text, nil
}

func (p *Pipeline) summarize(ctx context.Context, text, language string) (string, error) {
	stageCtx, cancel := withTimeout(ctx, p.opts.GenerationTimeout)
	defer cancel()

	script, err := p.summarizer.Summarize(stageCtx, text, language)
	switch {
	case err == nil:
		return script, nil
	case errors.Is(err, summary.ErrEmptyContent):
		return "", newError(KindEmptyContent, "no text was recognized in the image", 0, err)
	default:
		return "", serviceError(KindGenerationService, "script generation failed", err)
	}
}

func (p *Pipeline) extractEquations(text string, logger *slog.Logger) []equation.Equation {
	if !p.opts.ExtractEquations {
		return []equation.Equation{}
	}
	eqs, err := equation.Parse(strings.NewReader(text))
	if err != nil {
		logger.Warn("equation extraction failed, continuing without equations", "error", err)
		return []equation.Equation{}
	}
	return eqs
}

func (p *Pipeline) synthesize(ctx context.Context, script string, v voice.Voice) (*tts.SynthesizeResult, error) {
	stageCtx, cancel := withTimeout(ctx, p.opts.SynthesisTimeout)
	defer cancel()

	res, err := p.synthesizer.Synthesize(stageCtx, script, tts.SynthesizeOpts{
		VoiceID:  v.ID,
		Language: v.Language,
	})
	if err != nil {
		return nil, serviceError(KindSynthesisService, "speech synthesis via "+p.synthesizer.Name()+" failed", err)
	}
	if res == nil || len(res.Audio) == 0 {
		return nil, newError(KindSynthesisService, "speech synthesis returned no audio", 0, nil)
	}
	return res, nil
}

func serviceError(kind Kind, message string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		message += " (timed out)"
	}
	return newError(kind, message, upstream.StatusCode(err), err)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func quote(s string) string {
	return `"` + s + `"`
}
