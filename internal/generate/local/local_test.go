package local

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nadzzz/mathvoice/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Ollama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "the prompt", body["prompt"])
		assert.Equal(t, false, body["stream"])
		_, _ = w.Write([]byte(`{"response":"a lecture"}`))
	}))
	defer srv.Close()

	g := New(config.LocalConfig{Endpoint: srv.URL + "/api/generate"})
	res, err := g.Generate(t.Context(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "a lecture", res.Text)
}

func TestGenerate_ChatCompletions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "messages")
		assert.Equal(t, "llama3", body["model"])
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"from chat"}}]}`))
	}))
	defer srv.Close()

	res, err := New(config.LocalConfig{Endpoint: srv.URL + "/v1/chat/completions"}).Generate(t.Context(), "p")
	require.NoError(t, err)
	assert.Equal(t, "from chat", res.Text)
}

func TestGenerate_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(config.LocalConfig{Endpoint: srv.URL}).Generate(t.Context(), "p")
	assert.ErrorContains(t, err, "status 500")
}

func TestExtractContent_PlainText(t *testing.T) {
	assert.Equal(t, "raw words", extractContent([]byte("  raw words \n")))
	assert.Equal(t, "", extractContent([]byte("   ")))
}
