// Package http implements the HTTP transport for mathvoice.
//
// This transport exposes a REST API for creating lectures from uploaded
// images, listing voices and managing user accounts. It also serves the
// Swagger UI for the API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/mathvoice/docs"
	"github.com/nadzzz/mathvoice/internal/account"
	"github.com/nadzzz/mathvoice/internal/config"
	"github.com/nadzzz/mathvoice/internal/message"
	"github.com/nadzzz/mathvoice/internal/transport"
)

const (
	defaultMaxUploadBytes = 10 << 20
	defaultRequestTimeout = 2 * time.Minute

	// multipartOverhead leaves room for form boundaries and the voice_id field.
	multipartOverhead = 64 << 10
)

// Accounts is the account service used by the user routes.
type Accounts interface {
	Register(ctx context.Context, username, email, password string) (*account.User, error)
	Login(ctx context.Context, username, password string) (*account.Session, error)
	Authenticate(ctx context.Context, token string) (*account.User, error)
	Logout(ctx context.Context, token string) error
}

// Options configures the optional parts of the HTTP transport.
type Options struct {
	// Accounts enables the /api/v1/users routes. Nil disables them.
	Accounts Accounts

	// RequireSession makes lecture creation require a valid bearer session.
	// It has no effect when Accounts is nil.
	RequireSession bool
}

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port           int
	maxUploadBytes int64
	requestTimeout time.Duration
	opts           Options
	server         *http.Server
}

// New creates a new HTTP transport.
func New(cfg config.HTTPConfig, opts Options) *Transport {
	t := &Transport{
		port:           cfg.Port,
		maxUploadBytes: cfg.MaxUploadBytes,
		requestTimeout: cfg.RequestTimeout,
		opts:           opts,
	}
	if t.maxUploadBytes <= 0 {
		t.maxUploadBytes = defaultMaxUploadBytes
	}
	if t.requestTimeout <= 0 {
		t.requestTimeout = defaultRequestTimeout
	}
	return t
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler builds the router serving svc.
func (t *Transport) Handler(svc transport.Service) http.Handler {
	h := &handlers{svc: svc, accounts: t.opts.Accounts, maxUploadBytes: t.maxUploadBytes}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(t.requestTimeout))

	lecture := func(r chi.Router) {
		if t.opts.RequireSession && t.opts.Accounts != nil {
			r.Use(h.requireSession)
		}
		r.Post("/api/v1/lectures", h.createLecture)
		r.Post("/image-to-speech", h.imageToSpeech)
	}
	r.Group(lecture)

	r.Get("/api/v1/voices", h.listVoices)

	if t.opts.Accounts != nil {
		r.Route("/api/v1/users", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.With(h.requireSession).Get("/me", h.me)
			r.With(h.requireSession).Post("/logout", h.logout)
		})
	}

	// Swagger UI for the generated OpenAPI docs.
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return r
}

// Listen starts the HTTP server and serves requests with svc.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port, "max_upload_bytes", t.maxUploadBytes)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, message.ErrorBody{Error: msg, Kind: kind, Status: status})
}
