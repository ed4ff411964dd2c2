package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nadzzz/mathvoice/internal/account"
	"github.com/nadzzz/mathvoice/internal/equation"
	"github.com/nadzzz/mathvoice/internal/message"
	"github.com/nadzzz/mathvoice/internal/pipeline"
	"github.com/nadzzz/mathvoice/internal/transport"
)

type userKey struct{}

type handlers struct {
	svc            transport.Service
	accounts       Accounts
	maxUploadBytes int64
}

// RegisterRequest is the body of POST /api/v1/users/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /api/v1/users/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// legacyResponse is the body returned by POST /image-to-speech.
type legacyResponse struct {
	Transcript  string              `json:"transcript"`
	AudioBase64 string              `json:"audio_base64"`
	AudioFormat string              `json:"audio_format"`
	Equations   []equation.Equation `json:"equations"`
}

// createLecture processes a POST /api/v1/lectures request.
//
// @Summary     Create a spoken lecture from an image
// @Description Runs the uploaded image through OCR, script generation and speech synthesis.
// @Description The response carries the script, base64 audio and any extracted equations.
// @Tags        lectures
// @Accept      multipart/form-data
// @Produce     json
// @Param       image     formData  file    true   "Image of mathematical content"
// @Param       voice_id  formData  string  false  "Voice id (defaults to the configured voice)"
// @Param       Authorization  header  string  false  "Bearer session token (required when sessions are enforced)"
// @Success     200  {object}  message.LectureResponse
// @Failure     400  {object}  message.ErrorBody  "Invalid image or unknown voice"
// @Failure     401  {object}  message.ErrorBody  "Missing or invalid session"
// @Failure     413  {object}  message.ErrorBody  "Image too large"
// @Failure     422  {object}  message.ErrorBody  "No content recognized in the image"
// @Failure     502  {object}  message.ErrorBody  "An external service failed"
// @Failure     504  {object}  message.ErrorBody  "An external service timed out"
// @Router      /api/v1/lectures [post]
func (h *handlers) createLecture(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.runLecture(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// imageToSpeech processes a POST /image-to-speech request.
//
// @Summary     Create a spoken lecture (legacy)
// @Description Same pipeline as /api/v1/lectures with the original snake_case response body.
// @Tags        lectures
// @Accept      multipart/form-data
// @Produce     json
// @Param       image     formData  file    true   "Image of mathematical content"
// @Param       voice_id  formData  string  false  "Voice id"
// @Success     200  {object}  legacyResponse
// @Failure     400  {object}  message.ErrorBody
// @Failure     502  {object}  message.ErrorBody
// @Router      /image-to-speech [post]
func (h *handlers) imageToSpeech(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.runLecture(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, legacyResponse{
		Transcript:  resp.Transcript,
		AudioBase64: resp.AudioBase64,
		AudioFormat: resp.AudioFormat,
		Equations:   resp.Equations,
	})
}

func (h *handlers) runLecture(w http.ResponseWriter, r *http.Request) (*message.LectureResponse, bool) {
	req, status, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, status, string(pipeline.KindInvalidInput), err.Error())
		return nil, false
	}

	resp, err := h.svc.CreateLecture(r.Context(), req)
	if err != nil {
		status, kind := statusFor(err)
		writeJSON(w, status, message.ErrorBody{
			Error:          errorMessage(err),
			Kind:           kind,
			Status:         status,
			UpstreamStatus: upstreamStatus(err),
		})
		return nil, false
	}
	return resp, true
}

// readUpload extracts the image and voice id from a multipart request.
func (h *handlers) readUpload(w http.ResponseWriter, r *http.Request) (*message.LectureRequest, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, errors.New("image exceeds the upload limit")
		}
		return nil, http.StatusBadRequest, errors.New("expected a multipart/form-data body with an image field")
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("missing image file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("reading image failed")
	}
	if int64(len(data)) > h.maxUploadBytes {
		return nil, http.StatusRequestEntityTooLarge, errors.New("image exceeds the upload limit")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	source := r.RemoteAddr
	if u, ok := r.Context().Value(userKey{}).(*account.User); ok {
		source = u.Username
	}

	return &message.LectureRequest{
		Source:      source,
		Image:       data,
		ContentType: contentType,
		VoiceID:     strings.TrimSpace(r.FormValue("voice_id")),
	}, 0, nil
}

// listVoices processes a GET /api/v1/voices request.
//
// @Summary     List voices
// @Tags        voices
// @Produce     json
// @Success     200  {object}  message.VoiceList
// @Router      /api/v1/voices [get]
func (h *handlers) listVoices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Voices())
}

// register processes a POST /api/v1/users/register request.
//
// @Summary     Register a user
// @Tags        users
// @Accept      json
// @Produce     json
// @Param       body  body      RegisterRequest  true  "New account"
// @Success     201   {object}  account.User
// @Failure     400   {object}  message.ErrorBody
// @Failure     409   {object}  message.ErrorBody  "Username or email taken"
// @Router      /api/v1/users/register [post]
func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var body RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json: "+err.Error())
		return
	}

	u, err := h.accounts.Register(r.Context(), body.Username, body.Email, body.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, u)
	case errors.Is(err, account.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, account.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		slog.Error("register failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "registration failed")
	}
}

// login processes a POST /api/v1/users/login request.
//
// @Summary     Log in
// @Tags        users
// @Accept      json
// @Produce     json
// @Param       body  body      LoginRequest  true  "Credentials"
// @Success     200   {object}  account.Session
// @Failure     401   {object}  message.ErrorBody
// @Router      /api/v1/users/login [post]
func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var body LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json: "+err.Error())
		return
	}

	sess, err := h.accounts.Login(r.Context(), body.Username, body.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, sess)
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	default:
		slog.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "login failed")
	}
}

// me processes a GET /api/v1/users/me request.
//
// @Summary     Current user
// @Tags        users
// @Produce     json
// @Param       Authorization  header  string  true  "Bearer session token"
// @Success     200  {object}  account.User
// @Failure     401  {object}  message.ErrorBody
// @Router      /api/v1/users/me [get]
func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, r.Context().Value(userKey{}))
}

// logout processes a POST /api/v1/users/logout request.
//
// @Summary     Log out
// @Tags        users
// @Param       Authorization  header  string  true  "Bearer session token"
// @Success     204
// @Failure     401  {object}  message.ErrorBody
// @Router      /api/v1/users/logout [post]
func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Logout(r.Context(), bearerToken(r)); err != nil {
		slog.Error("logout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireSession rejects requests without a valid bearer session and stores
// the authenticated user in the request context.
func (h *handlers) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := h.accounts.Authenticate(r.Context(), bearerToken(r))
		if errors.Is(err, account.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		if err != nil {
			slog.Error("session lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal", "session lookup failed")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, u)))
	})
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// statusFor maps a service error to an HTTP status and error kind.
func statusFor(err error) (int, string) {
	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		return http.StatusInternalServerError, "internal"
	}
	switch pe.Kind {
	case pipeline.KindInvalidInput, pipeline.KindUnknownVoice:
		return http.StatusBadRequest, string(pe.Kind)
	case pipeline.KindEmptyContent:
		return http.StatusUnprocessableEntity, string(pe.Kind)
	case pipeline.KindOCRService, pipeline.KindGenerationService, pipeline.KindSynthesisService:
		if pe.Timeout() {
			return http.StatusGatewayTimeout, string(pe.Kind)
		}
		return http.StatusBadGateway, string(pe.Kind)
	default:
		return http.StatusInternalServerError, string(pe.Kind)
	}
}

func upstreamStatus(err error) int {
	var pe *pipeline.Error
	if errors.As(err, &pe) {
		return pe.Status
	}
	return 0
}

// errorMessage returns the client-facing text for err. Collaborator details
// stay in the logs.
func errorMessage(err error) string {
	var pe *pipeline.Error
	if errors.As(err, &pe) {
		return pe.Message
	}
	return "internal error"
}
