// Package message defines the data types exchanged between transports and
// the mathvoice dispatcher.
package message

import (
	"encoding/base64"
	"time"

	"github.com/nadzzz/mathvoice/internal/equation"
)

// LectureRequest is an incoming image-to-lecture request from any transport.
type LectureRequest struct {
	// ID is a unique identifier for this request (UUID). The dispatcher
	// assigns one when the transport leaves it empty.
	ID string `json:"id"`

	// Source identifies the caller (e.g., a username or remote address).
	Source string `json:"source,omitempty"`

	// Image is the raw image payload.
	Image []byte `json:"image"`

	// ContentType is the MIME type of the image (e.g., "image/png").
	ContentType string `json:"contentType"`

	// VoiceID selects the narration voice.
	VoiceID string `json:"voiceId"`

	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp"`
}

// LectureResponse is the outcome of a successful lecture request.
type LectureResponse struct {
	// RequestID is the originating request ID.
	RequestID string `json:"requestId"`

	// Transcript is the lecture script that was read aloud.
	Transcript string `json:"transcript"`

	// AudioBase64 is the synthesized audio as a base64-encoded string.
	AudioBase64 string `json:"audioBase64"`

	// AudioFormat is the audio container name (e.g., "mp3", "wav").
	AudioFormat string `json:"audioFormat"`

	// Equations lists the equations extracted from the content. Never null.
	Equations []equation.Equation `json:"equations"`

	// VoiceID is the voice that was used.
	VoiceID string `json:"voiceId"`

	// Language is the narration language of the voice.
	Language string `json:"language"`
}

// SetAudioBytes base64-encodes raw audio bytes into AudioBase64.
func (r *LectureResponse) SetAudioBytes(audio []byte) {
	r.AudioBase64 = base64.StdEncoding.EncodeToString(audio)
}

// AudioBytes decodes AudioBase64.
func (r *LectureResponse) AudioBytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.AudioBase64)
}

// VoiceInfo describes one selectable voice.
type VoiceInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// VoiceList is the response body of the voice listing.
type VoiceList struct {
	Voices  []VoiceInfo `json:"voices"`
	Default string      `json:"default"`
}

// ErrorBody is the JSON error payload returned by transports.
type ErrorBody struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Status int    `json:"status,omitempty"`

	// UpstreamStatus is the status code returned by a failing external
	// service, when it answered at all.
	UpstreamStatus int `json:"upstreamStatus,omitempty"`
}
