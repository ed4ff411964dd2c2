// Package mathpix implements the OCR Recognizer using the Mathpix v3/text API.
package mathpix

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nadzzz/mathvoice/internal/config"
	"github.com/nadzzz/mathvoice/internal/ocr"
	"github.com/nadzzz/mathvoice/internal/upstream"
)

const defaultEndpoint = "https://api.mathpix.com/v3/text"

// Recognizer sends images to Mathpix.
type Recognizer struct {
	appID    string
	appKey   string
	endpoint string
	client   *http.Client
}

// New creates a Mathpix recognizer from config.
func New(cfg config.MathpixConfig) *Recognizer {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Recognizer{
		appID:    cfg.AppID,
		appKey:   cfg.AppKey,
		endpoint: endpoint,
		client:   &http.Client{},
	}
}

// Name returns the backend identifier.
func (r *Recognizer) Name() string { return "mathpix" }

// Recognize submits the image as a data URL and asks for text, styled LaTeX
// and MathML.
func (r *Recognizer) Recognize(ctx context.Context, image []byte, contentType string) (*ocr.Result, error) {
	reqBody := textRequest{
		Src:     "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(image),
		Formats: []string{"text", "latex_styled", "data"},
		DataOptions: dataOptions{
			IncludeLatex:  true,
			IncludeMathML: true,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshalling mathpix request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating mathpix request: %w", err)
	}
	req.Header.Set("app_id", r.appID)
	req.Header.Set("app_key", r.appKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mathpix request: %w", err)
	}
	defer resp.Body.Close()

	if !upstream.IsSuccess(resp.StatusCode) {
		return nil, upstream.FromResponse("mathpix", resp)
	}

	var result textResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding mathpix response: %w", err)
	}

	// Mathpix reports recognition failures in a 200 body.
	if result.Error != "" {
		return nil, &upstream.Error{Service: "mathpix", Message: result.Error}
	}

	out := &ocr.Result{
		Text:        result.Text,
		LaTeXStyled: result.LatexStyled,
		Confidence:  result.Confidence,
	}
	for _, d := range result.Data {
		if d.Type == "mathml" {
			out.MathML = d.Value
			break
		}
	}

	slog.Debug("mathpix recognition complete",
		"text_length", len(out.Text),
		"confidence", out.Confidence,
		"request_id", result.RequestID)
	return out, nil
}

// Close is a no-op; requests are independent.
func (r *Recognizer) Close() error { return nil }

// --- Internal types ---

type textRequest struct {
	Src         string      `json:"src"`
	Formats     []string    `json:"formats"`
	DataOptions dataOptions `json:"data_options"`
}

type dataOptions struct {
	IncludeLatex  bool `json:"include_latex"`
	IncludeMathML bool `json:"include_mathml"`
}

type textResponse struct {
	RequestID   string  `json:"request_id"`
	Text        string  `json:"text"`
	LatexStyled string  `json:"latex_styled"`
	Confidence  float64 `json:"confidence"`
	Data        []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"data"`
	Error string `json:"error"`
}
