// Package tts defines the interface for text-to-speech synthesis.
//
// mathvoice uses TTS to read the generated lecture script aloud. Audio is
// always returned in memory; no backend writes intermediate files, so
// concurrent requests never share an output path.
package tts

import (
	"context"
	"strings"
)

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// VoiceID selects the voice (an ElevenLabs voice id).
	VoiceID string

	// Language is the narration language name (e.g., "english"), used by
	// backends that choose a voice model per language.
	Language string

	// ModelID overrides the backend's default synthesis model.
	ModelID string

	// OutputFormat overrides the backend's default output format
	// (e.g., "mp3_44100_128").
	OutputFormat string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Name returns the backend identifier (e.g., "elevenlabs", "piper").
	Name() string

	// Synthesize generates audio for the given text.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SynthesizeResult holds the output of TTS synthesis.
type SynthesizeResult struct {
	// Audio is the encoded audio.
	Audio []byte

	// Format is the short container name (e.g., "mp3", "wav").
	Format string

	// ContentType is the MIME type of the audio (e.g., "audio/mpeg").
	ContentType string
}

// FormatFromOutput derives the container name from an output format string
// such as "mp3_44100_128" or "pcm_16000".
func FormatFromOutput(outputFormat string) string {
	name, _, _ := strings.Cut(outputFormat, "_")
	return strings.ToLower(name)
}

// ContentTypeFor returns the MIME type for a container name.
func ContentTypeFor(format string) string {
	switch format {
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "pcm":
		return "audio/L16"
	case "ulaw":
		return "audio/basic"
	case "opus":
		return "audio/opus"
	default:
		return "application/octet-stream"
	}
}
