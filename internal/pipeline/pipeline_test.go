package pipeline

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/nadzzz/mathvoice/internal/generate"
	"github.com/nadzzz/mathvoice/internal/ocr"
	"github.com/nadzzz/mathvoice/internal/summary"
	"github.com/nadzzz/mathvoice/internal/tts"
	"github.com/nadzzz/mathvoice/internal/upstream"
	"github.com/nadzzz/mathvoice/internal/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecognizer struct {
	text  string
	err   error
	block bool
	calls int
}

func (s *stubRecognizer) Name() string { return "stub-ocr" }
func (s *stubRecognizer) Close() error { return nil }
func (s *stubRecognizer) Recognize(ctx context.Context, _ []byte, _ string) (*ocr.Result, error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return &ocr.Result{Text: s.text}, nil
}

type stubGenerator struct {
	text       string
	err        error
	calls      int
	lastPrompt string
}

func (s *stubGenerator) Name() string { return "stub-llm" }
func (s *stubGenerator) Close() error { return nil }
func (s *stubGenerator) Generate(_ context.Context, prompt string) (*generate.Result, error) {
	s.calls++
	s.lastPrompt = prompt
	if s.err != nil {
		return nil, s.err
	}
	return &generate.Result{Text: s.text}, nil
}

type stubSynthesizer struct {
	audio    []byte
	err      error
	calls    int
	lastText string
	lastOpts tts.SynthesizeOpts
}

func (s *stubSynthesizer) Name() string { return "stub-tts" }
func (s *stubSynthesizer) Close() error { return nil }
func (s *stubSynthesizer) Synthesize(_ context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	s.calls++
	s.lastText = text
	s.lastOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	return &tts.SynthesizeResult{Audio: s.audio, Format: "mp3", ContentType: "audio/mpeg"}, nil
}

type fixture struct {
	ocr   *stubRecognizer
	gen   *stubGenerator
	synth *stubSynthesizer
}

func newFixture() *fixture {
	return &fixture{
		ocr:   &stubRecognizer{text: "x^2+y^2=z^2"},
		gen:   &stubGenerator{text: "The Pythagorean theorem states that the squares of the legs add up to the square of the hypotenuse."},
		synth: &stubSynthesizer{audio: []byte("AUDIO")},
	}
}

func (f *fixture) pipeline(opts Options) *Pipeline {
	return New(f.ocr, summary.New(f.gen), voice.Default(), f.synth, opts)
}

func validInput() Input {
	return Input{Image: []byte("fake-jpeg"), ContentType: "image/jpeg", VoiceID: "21m00Tcm4TlvDq8ikWAM"}
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture()
	res, err := f.pipeline(Options{}).Run(t.Context(), validInput())
	require.NoError(t, err)

	assert.Equal(t, f.gen.text, res.Transcript)
	assert.Equal(t, []byte("AUDIO"), res.Audio)
	assert.Equal(t, "mp3", res.AudioFormat)
	assert.NotNil(t, res.Equations)
	assert.Empty(t, res.Equations)
	assert.Equal(t, "Rachel", res.Voice.Name)

	assert.Equal(t, 1, f.ocr.calls)
	assert.Equal(t, 1, f.gen.calls)
	assert.Equal(t, 1, f.synth.calls)
	assert.Contains(t, f.gen.lastPrompt, "x^2+y^2=z^2")
	assert.Contains(t, f.gen.lastPrompt, "Write your entire answer in english")
	assert.Equal(t, f.gen.text, f.synth.lastText)
	assert.Equal(t, tts.SynthesizeOpts{VoiceID: "21m00Tcm4TlvDq8ikWAM", Language: "english"}, f.synth.lastOpts)
}

func TestRun_VoiceLanguageReachesPrompt(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.VoiceID = "ErXwobaYiN019PkySvjV"

	_, err := f.pipeline(Options{}).Run(t.Context(), in)
	require.NoError(t, err)
	assert.Contains(t, f.gen.lastPrompt, "Write your entire answer in spanish")
	assert.Equal(t, "spanish", f.synth.lastOpts.Language)
}

func TestRun_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"empty image", Input{ContentType: "image/png", VoiceID: voice.DefaultID}},
		{"not an image", Input{Image: []byte("hello"), ContentType: "text/plain", VoiceID: voice.DefaultID}},
		{"no content type", Input{Image: []byte("hello"), VoiceID: voice.DefaultID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			res, err := f.pipeline(Options{}).Run(t.Context(), tt.in)
			assert.Nil(t, res)
			assert.True(t, IsKind(err, KindInvalidInput), "got %v", err)
			assert.Zero(t, f.ocr.calls+f.gen.calls+f.synth.calls)
		})
	}
}

func TestRun_UnknownVoice(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.VoiceID = "no-such-voice"

	res, err := f.pipeline(Options{}).Run(t.Context(), in)
	assert.Nil(t, res)
	assert.True(t, IsKind(err, KindUnknownVoice))
	assert.ErrorIs(t, err, voice.ErrNotFound)
	assert.Zero(t, f.ocr.calls)
}

func TestRun_EmptyOCRText(t *testing.T) {
	f := newFixture()
	f.ocr.text = "   \n"

	_, err := f.pipeline(Options{}).Run(t.Context(), validInput())
	assert.True(t, IsKind(err, KindEmptyContent))
	assert.ErrorIs(t, err, summary.ErrEmptyContent)
	assert.Zero(t, f.gen.calls)
	assert.Zero(t, f.synth.calls)
}

func TestRun_OCRFailureCarriesUpstreamStatus(t *testing.T) {
	f := newFixture()
	f.ocr.err = &upstream.Error{Service: "mathpix", StatusCode: http.StatusUnauthorized, Message: "bad key"}

	_, err := f.pipeline(Options{}).Run(t.Context(), validInput())

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindOCRService, pe.Kind)
	assert.Equal(t, http.StatusUnauthorized, pe.Status)
	assert.False(t, pe.Timeout())
	assert.Zero(t, f.gen.calls)
}

func TestRun_GenerationFailure(t *testing.T) {
	f := newFixture()
	f.gen.err = &upstream.Error{Service: "generation", StatusCode: http.StatusTooManyRequests, Message: "quota"}

	_, err := f.pipeline(Options{}).Run(t.Context(), validInput())

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindGenerationService, pe.Kind)
	assert.Equal(t, http.StatusTooManyRequests, pe.Status)
	var ge *summary.GenerationError
	assert.ErrorAs(t, err, &ge)
	assert.Zero(t, f.synth.calls)
}

func TestRun_SynthesisFailureDiscardsTranscript(t *testing.T) {
	f := newFixture()
	f.synth.err = errors.New("connection refused")

	res, err := f.pipeline(Options{}).Run(t.Context(), validInput())
	assert.Nil(t, res)
	assert.True(t, IsKind(err, KindSynthesisService))
}

func TestRun_SynthesisWithoutAudio(t *testing.T) {
	f := newFixture()
	f.synth.audio = nil

	res, err := f.pipeline(Options{}).Run(t.Context(), validInput())
	assert.Nil(t, res)
	assert.True(t, IsKind(err, KindSynthesisService))
}

func TestRun_OCRTimeout(t *testing.T) {
	f := newFixture()
	f.ocr.block = true

	_, err := f.pipeline(Options{OCRTimeout: 10 * time.Millisecond}).Run(t.Context(), validInput())

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindOCRService, pe.Kind)
	assert.True(t, pe.Timeout())
	assert.Contains(t, pe.Error(), "timed out")
}

func TestRun_CallerCancelled(t *testing.T) {
	f := newFixture()
	f.ocr.block = true

	ctx, cancel := context.WithCancel(t.Context())
	time.AfterFunc(10*time.Millisecond, cancel)

	res, err := f.pipeline(Options{OCRTimeout: time.Minute}).Run(ctx, validInput())
	assert.Nil(t, res)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindOCRService, pe.Kind)
	assert.False(t, pe.Timeout())
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, pe.Error(), "timed out")
	assert.Zero(t, f.gen.calls)
	assert.Zero(t, f.synth.calls)
}

func TestRun_ExtractEquations(t *testing.T) {
	f := newFixture()
	f.ocr.text = "E = mc^2 - mass-energy equivalence - <math><mi>E</mi></math>\nSymbols: E, m, c"

	res, err := f.pipeline(Options{ExtractEquations: true}).Run(t.Context(), validInput())
	require.NoError(t, err)
	require.Len(t, res.Equations, 1)
	assert.Equal(t, "E = mc^2", res.Equations[0].LaTeX)
	assert.Equal(t, []string{"E", "c", "m"}, res.Equations[0].Symbols())
}

func TestRun_ExtractEquationsNoMatches(t *testing.T) {
	f := newFixture()

	res, err := f.pipeline(Options{ExtractEquations: true}).Run(t.Context(), validInput())
	require.NoError(t, err)
	assert.NotNil(t, res.Equations)
	assert.Empty(t, res.Equations)
}

func TestError_Message(t *testing.T) {
	err := newError(KindOCRService, "ocr failed", 503, errors.New("unavailable"))
	assert.Equal(t, "[ocr_service] ocr failed (upstream status 503): unavailable", err.Error())
	assert.Equal(t, KindOCRService, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
