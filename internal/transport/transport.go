// Package transport defines the interface for pluggable request transports.
//
// Each transport (HTTP, gRPC) implements this interface and serves requests
// by calling the Service it is given. The service doesn't care how requests
// arrive; it only works with the Transport contract.
package transport

import (
	"context"

	"github.com/nadzzz/mathvoice/internal/message"
)

// Service is what transports expose to callers. The dispatcher implements it.
type Service interface {
	// CreateLecture runs one image through the lecture pipeline.
	CreateLecture(ctx context.Context, req *message.LectureRequest) (*message.LectureResponse, error)

	// Voices lists the selectable voices.
	Voices() message.VoiceList
}

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts accepting requests and serves them with svc.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, svc Service) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
