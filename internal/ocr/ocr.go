// Package ocr defines the interface for recognizing mathematical content in images.
//
// mathvoice ships with two backends: Mathpix (purpose-built math OCR) and a
// vision-capable chat model reached through an OpenAI-compatible API.
package ocr

import "context"

// Result is the recognized content of one image. Fields a backend does not
// produce are left empty.
type Result struct {
	// Text is the recognized text with inline LaTeX. It is the field the
	// lecture pipeline works from.
	Text string

	// LaTeXStyled is the LaTeX rendition of the image, when available.
	LaTeXStyled string

	// MathML is the MathML rendition of the image, when available.
	MathML string

	// Confidence is the backend's confidence in [0, 1], or 0 when unknown.
	Confidence float64
}

// Recognizer extracts text and math markup from an image.
type Recognizer interface {
	// Name returns the backend identifier (e.g., "mathpix", "vision").
	Name() string

	// Recognize runs OCR on the image bytes of the given content type.
	Recognize(ctx context.Context, image []byte, contentType string) (*Result, error)

	// Close releases any resources held by the recognizer.
	Close() error
}
