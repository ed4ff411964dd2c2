// Package dispatch implements the service that transports call.
//
// The dispatcher receives lecture requests from transports, runs them
// through the pipeline (OCR → summary → equations → speech) and converts the
// result into the wire response. The caller always receives either a full
// response or an error, never a partial lecture.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/mathvoice/internal/equation"
	"github.com/nadzzz/mathvoice/internal/message"
	"github.com/nadzzz/mathvoice/internal/pipeline"
	"github.com/nadzzz/mathvoice/internal/voice"
)

// Runner runs one lecture through the pipeline.
type Runner interface {
	Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
}

// Dispatcher is the central request handler.
type Dispatcher struct {
	runner       Runner
	voices       *voice.Registry
	defaultVoice string
}

// New creates a new Dispatcher. defaultVoice is used for requests that do
// not name a voice.
func New(runner Runner, voices *voice.Registry, defaultVoice string) *Dispatcher {
	if defaultVoice == "" {
		defaultVoice = voice.DefaultID
	}
	return &Dispatcher{
		runner:       runner,
		voices:       voices,
		defaultVoice: defaultVoice,
	}
}

// CreateLecture processes a single request through the full pipeline.
func (d *Dispatcher) CreateLecture(ctx context.Context, req *message.LectureRequest) (*message.LectureResponse, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}
	if req.VoiceID == "" {
		req.VoiceID = d.defaultVoice
	}

	start := time.Now()
	logger := slog.With("request_id", req.ID, "source", req.Source)
	logger.Info("lecture started", "voice_id", req.VoiceID, "content_type", req.ContentType, "image_bytes", len(req.Image))

	res, err := d.runner.Run(ctx, pipeline.Input{
		Image:       req.Image,
		ContentType: req.ContentType,
		VoiceID:     req.VoiceID,
	})
	if err != nil {
		logger.Error("lecture failed", "kind", pipeline.KindOf(err), "duration", time.Since(start), "error", err)
		return nil, err
	}

	resp := &message.LectureResponse{
		RequestID:   req.ID,
		Transcript:  res.Transcript,
		AudioFormat: res.AudioFormat,
		Equations:   res.Equations,
		VoiceID:     res.Voice.ID,
		Language:    res.Voice.Language,
	}
	if resp.Equations == nil {
		resp.Equations = []equation.Equation{}
	}
	resp.SetAudioBytes(res.Audio)

	logger.Info("lecture complete",
		"duration", time.Since(start),
		"transcript_length", len(res.Transcript),
		"audio_bytes", len(res.Audio),
		"equations", len(res.Equations),
	)
	return resp, nil
}

// Voices lists the registered voices and the default selection.
func (d *Dispatcher) Voices() message.VoiceList {
	all := d.voices.All()
	out := make([]message.VoiceInfo, 0, len(all))
	for _, v := range all {
		out = append(out, message.VoiceInfo{ID: v.ID, Name: v.Name, Language: v.Language})
	}
	return message.VoiceList{Voices: out, Default: d.defaultVoice}
}
