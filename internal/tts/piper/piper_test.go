package piper

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"net"
	"testing"

	"github.com/nadzzz/mathvoice/internal/config"
	"github.com/nadzzz/mathvoice/internal/tts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWyoming accepts one connection, records the synthesize event and
// replies with the given events.
func fakeWyoming(t *testing.T, reply func(conn net.Conn)) (addr string, got <-chan *wyomingEvent) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lis.Close() })

	ch := make(chan *wyomingEvent, 1)
	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		evt, _, err := readEvent(bufio.NewReader(conn))
		if err != nil {
			close(ch)
			return
		}
		ch <- evt
		reply(conn)
	}()
	return lis.Addr().String(), ch
}

func TestSynthesize(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0}
	addr, got := fakeWyoming(t, func(conn net.Conn) {
		_ = writeEvent(conn, wyomingEvent{Type: "audio-start", Data: map[string]any{"rate": 16000, "width": 2, "channels": 1}}, nil)
		_ = writeEvent(conn, wyomingEvent{Type: "audio-chunk"}, pcm[:4])
		_ = writeEvent(conn, wyomingEvent{Type: "audio-chunk"}, pcm[4:])
		_ = writeEvent(conn, wyomingEvent{Type: "audio-stop"}, nil)
	})

	s := New(config.PiperConfig{Endpoint: "tcp://" + addr})
	res, err := s.Synthesize(t.Context(), "bonjour", tts.SynthesizeOpts{VoiceID: "ignored", Language: "French"})
	require.NoError(t, err)

	evt := <-got
	require.NotNil(t, evt)
	assert.Equal(t, "synthesize", evt.Type)
	assert.Equal(t, "bonjour", evt.Data["text"])
	assert.Equal(t, map[string]any{"name": "fr_FR-siwis-medium"}, evt.Data["voice"])

	assert.Equal(t, "wav", res.Format)
	assert.Equal(t, "audio/wav", res.ContentType)
	require.Len(t, res.Audio, 44+len(pcm))
	assert.Equal(t, "RIFF", string(res.Audio[0:4]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(res.Audio[24:28]))
	assert.True(t, bytes.Equal(pcm, res.Audio[44:]))
}

func TestSynthesize_ErrorEvent(t *testing.T) {
	addr, _ := fakeWyoming(t, func(conn net.Conn) {
		_ = writeEvent(conn, wyomingEvent{Type: "error", Data: map[string]any{"text": "voice missing"}}, nil)
	})

	_, err := New(config.PiperConfig{Endpoint: addr}).Synthesize(t.Context(), "hi", tts.SynthesizeOpts{Language: "english"})
	assert.ErrorContains(t, err, "voice missing")
}

func TestSynthesize_PerLanguageEndpointAndFallbackVoice(t *testing.T) {
	addr, got := fakeWyoming(t, func(conn net.Conn) {
		_ = writeEvent(conn, wyomingEvent{Type: "audio-stop"}, nil)
	})

	s := New(config.PiperConfig{Endpoints: map[string]string{"klingon": addr}})
	_, err := s.Synthesize(t.Context(), "hi", tts.SynthesizeOpts{Language: "klingon"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "en_US-lessac-medium"}, (<-got).Data["voice"])
}

func TestSynthesize_NoEndpoint(t *testing.T) {
	_, err := New(config.PiperConfig{}).Synthesize(t.Context(), "hi", tts.SynthesizeOpts{Language: "english"})
	assert.ErrorContains(t, err, "no piper endpoint")
}

func TestReadEvent_InvalidHeader(t *testing.T) {
	_, _, err := readEvent(bufio.NewReader(bytes.NewBufferString("garbage\n")))
	assert.ErrorContains(t, err, "invalid wyoming header")
}
