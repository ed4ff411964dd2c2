package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies pipeline failures.
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindUnknownVoice      Kind = "unknown_voice"
	KindEmptyContent      Kind = "empty_content"
	KindOCRService        Kind = "ocr_service"
	KindGenerationService Kind = "generation_service"
	KindSynthesisService  Kind = "synthesis_service"
)

// Error is a structured pipeline failure: kind, message, and the upstream
// HTTP status when a collaborator reported one.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (upstream status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a collaborator timeout.
func (e *Error) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// KindOf returns the Kind of err, or "" if err is not a pipeline error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err is a pipeline error of kind k.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

func newError(kind Kind, message string, status int, err error) *Error {
	return &Error{Kind: kind, Message: message, Status: status, Err: err}
}
