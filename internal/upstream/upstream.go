// Package upstream describes failures reported by external collaborator
// services (OCR, generation, speech synthesis).
package upstream

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of an error response body is kept.
const maxErrorBody = 2048

// Error is a non-success response from a collaborator service.
type Error struct {
	// Service names the collaborator (e.g., "mathpix", "elevenlabs").
	Service string

	// StatusCode is the HTTP status returned by the collaborator, or 0 when
	// the failure was reported inside a successful response.
	StatusCode int

	// Message is the collaborator's error text, truncated.
	Message string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (status %d): %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Service, e.Message)
}

// FromResponse builds an Error from a non-2xx response. The body is read up
// to a fixed limit; the caller still owns closing it.
func FromResponse(service string, resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &Error{
		Service:    service,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}

// StatusCode extracts the upstream HTTP status from err, or 0 if err does not
// wrap an *Error.
func StatusCode(err error) int {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}

// IsSuccess reports whether an HTTP status is 2xx.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
