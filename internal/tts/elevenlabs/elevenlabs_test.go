package elevenlabs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nadzzz/mathvoice/internal/config"
	"github.com/nadzzz/mathvoice/internal/tts"
	"github.com/nadzzz/mathvoice/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "mp3_44100_128", r.URL.Query().Get("output_format"))
		assert.Equal(t, "xi-key", r.Header.Get("xi-api-key"))

		var req synthesizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Text)
		assert.Equal(t, "eleven_multilingual_v2", req.ModelID)

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("AUDIO"))
	}))
	defer srv.Close()

	s := New(config.ElevenLabsConfig{APIKey: "xi-key", BaseURL: srv.URL + "/v1"})
	res, err := s.Synthesize(t.Context(), "hello", tts.SynthesizeOpts{VoiceID: "voice-1"})
	require.NoError(t, err)
	assert.Equal(t, []byte("AUDIO"), res.Audio)
	assert.Equal(t, "mp3", res.Format)
	assert.Equal(t, "audio/mpeg", res.ContentType)
}

func TestSynthesize_Overrides(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pcm_16000", r.URL.Query().Get("output_format"))
		var req synthesizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "eleven_turbo_v2_5", req.ModelID)
		_, _ = w.Write([]byte{0, 1, 2, 3})
	}))
	defer srv.Close()

	s := New(config.ElevenLabsConfig{BaseURL: srv.URL})
	res, err := s.Synthesize(t.Context(), "hi", tts.SynthesizeOpts{
		VoiceID:      "v",
		ModelID:      "eleven_turbo_v2_5",
		OutputFormat: "pcm_16000",
	})
	require.NoError(t, err)
	assert.Equal(t, "pcm", res.Format)
}

func TestSynthesize_AudioLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("AUDIO"))
	}))
	defer srv.Close()

	s := New(config.ElevenLabsConfig{BaseURL: srv.URL})
	s.maxAudioBytes = 4
	_, err := s.Synthesize(t.Context(), "hi", tts.SynthesizeOpts{VoiceID: "v"})
	assert.ErrorContains(t, err, "exceeds 4 bytes")

	s.maxAudioBytes = 5
	res, err := s.Synthesize(t.Context(), "hi", tts.SynthesizeOpts{VoiceID: "v"})
	require.NoError(t, err)
	assert.Equal(t, []byte("AUDIO"), res.Audio)
}

func TestSynthesize_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"voice_not_found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(config.ElevenLabsConfig{BaseURL: srv.URL}).Synthesize(t.Context(), "hi", tts.SynthesizeOpts{VoiceID: "v"})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, upstream.StatusCode(err))
}

func TestSynthesize_Validation(t *testing.T) {
	s := New(config.ElevenLabsConfig{})
	_, err := s.Synthesize(t.Context(), "", tts.SynthesizeOpts{VoiceID: "v"})
	assert.Error(t, err)
	_, err = s.Synthesize(t.Context(), "text", tts.SynthesizeOpts{})
	assert.Error(t, err)
}
