// Package elevenlabs implements the TTS Synthesizer using the ElevenLabs REST API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/nadzzz/mathvoice/internal/config"
	"github.com/nadzzz/mathvoice/internal/tts"
	"github.com/nadzzz/mathvoice/internal/upstream"
)

const (
	defaultBaseURL      = "https://api.elevenlabs.io/v1"
	defaultModelID      = "eleven_multilingual_v2"
	defaultOutputFormat = "mp3_44100_128"

	// defaultMaxAudioBytes bounds the response body; a two-minute mp3 is far below this.
	defaultMaxAudioBytes = 32 << 20
)

// Synthesizer calls ElevenLabs text-to-speech.
type Synthesizer struct {
	apiKey       string
	baseURL      string
	modelID      string
	outputFormat string
	client       *http.Client

	maxAudioBytes int64
}

// New creates an ElevenLabs synthesizer from config.
func New(cfg config.ElevenLabsConfig) *Synthesizer {
	s := &Synthesizer{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		modelID:      cfg.ModelID,
		outputFormat: cfg.OutputFormat,
		client:       &http.Client{},

		maxAudioBytes: defaultMaxAudioBytes,
	}
	if s.baseURL == "" {
		s.baseURL = defaultBaseURL
	}
	if s.modelID == "" {
		s.modelID = defaultModelID
	}
	if s.outputFormat == "" {
		s.outputFormat = defaultOutputFormat
	}
	return s
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "elevenlabs" }

// Synthesize converts text with the requested voice and returns the encoded audio.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if text == "" {
		return nil, errors.New("empty text for synthesis")
	}
	if opts.VoiceID == "" {
		return nil, errors.New("no voice id for synthesis")
	}

	modelID := s.modelID
	if opts.ModelID != "" {
		modelID = opts.ModelID
	}
	outputFormat := s.outputFormat
	if opts.OutputFormat != "" {
		outputFormat = opts.OutputFormat
	}

	bodyBytes, err := json.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: modelID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling synthesis request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s",
		s.baseURL, url.PathEscape(opts.VoiceID), url.QueryEscape(outputFormat))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating synthesis request: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/*")

	slog.Debug("elevenlabs synthesize", "text_length", len(text), "voice", opts.VoiceID, "model", modelID, "format", outputFormat)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if !upstream.IsSuccess(resp.StatusCode) {
		return nil, upstream.FromResponse("elevenlabs", resp)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, s.maxAudioBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	if int64(len(audio)) > s.maxAudioBytes {
		return nil, fmt.Errorf("elevenlabs audio exceeds %d bytes", s.maxAudioBytes)
	}
	if len(audio) == 0 {
		return nil, errors.New("elevenlabs returned no audio")
	}

	format := tts.FormatFromOutput(outputFormat)
	slog.Debug("elevenlabs synthesis complete", "audio_bytes", len(audio))
	return &tts.SynthesizeResult{
		Audio:       audio,
		Format:      format,
		ContentType: tts.ContentTypeFor(format),
	}, nil
}

// Close is a no-op; requests are independent.
func (s *Synthesizer) Close() error { return nil }

type synthesizeRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}
