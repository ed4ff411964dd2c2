// Mathvoice turns images of mathematical content into spoken lectures.
//
// Usage:
//
//	mathvoice [flags]
//	mathvoice --config /path/to/mathvoice.yaml
//
// @title       mathvoice API
// @version     1.0
// @description Turns images of mathematical content into spoken lectures.
// @BasePath    /
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nadzzz/mathvoice/internal/account"
	"github.com/nadzzz/mathvoice/internal/config"
	"github.com/nadzzz/mathvoice/internal/dispatch"
	"github.com/nadzzz/mathvoice/internal/generate"
	localgen "github.com/nadzzz/mathvoice/internal/generate/local"
	openaigen "github.com/nadzzz/mathvoice/internal/generate/openai"
	"github.com/nadzzz/mathvoice/internal/health"
	"github.com/nadzzz/mathvoice/internal/ocr"
	"github.com/nadzzz/mathvoice/internal/ocr/mathpix"
	"github.com/nadzzz/mathvoice/internal/ocr/vision"
	"github.com/nadzzz/mathvoice/internal/pipeline"
	"github.com/nadzzz/mathvoice/internal/summary"
	"github.com/nadzzz/mathvoice/internal/transport"
	grpctransport "github.com/nadzzz/mathvoice/internal/transport/grpc"
	httptransport "github.com/nadzzz/mathvoice/internal/transport/http"
	"github.com/nadzzz/mathvoice/internal/tts"
	"github.com/nadzzz/mathvoice/internal/tts/elevenlabs"
	"github.com/nadzzz/mathvoice/internal/tts/piper"
	"github.com/nadzzz/mathvoice/internal/voice"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/mathvoice.local.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mathvoice %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("mathvoice starting", "version", version)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	recognizer := newRecognizer(cfg.OCR)
	defer recognizer.Close()

	generator := newGenerator(cfg.Generation)
	defer generator.Close()

	synthesizer := newSynthesizer(cfg.TTS)
	defer synthesizer.Close()

	voices := voice.Default()
	if _, err := voices.Resolve(cfg.Pipeline.DefaultVoice); err != nil {
		slog.Error("default voice is not supported", "voice_id", cfg.Pipeline.DefaultVoice)
		os.Exit(1)
	}

	lectures := pipeline.New(recognizer, summary.New(generator), voices, synthesizer, pipeline.Options{
		ExtractEquations:  cfg.Pipeline.ExtractEquations,
		OCRTimeout:        cfg.OCR.Timeout,
		GenerationTimeout: cfg.Generation.Timeout,
		SynthesisTimeout:  cfg.TTS.Timeout,
	})
	dispatcher := dispatch.New(lectures, voices, cfg.Pipeline.DefaultVoice)

	// Open the account store when user accounts are enabled.
	var httpOpts httptransport.Options
	if cfg.Accounts.Enabled {
		dsn := cfg.Accounts.DatabasePath
		if cfg.Accounts.Driver == account.DriverPostgres {
			dsn = cfg.Accounts.DSN
		}
		store, err := account.Open(ctx, cfg.Accounts.Driver, dsn)
		if err != nil {
			slog.Error("failed to open account store", "driver", cfg.Accounts.Driver, "error", err)
			os.Exit(1)
		}
		defer store.Close()

		accounts := account.NewService(store, cfg.Accounts.SessionTTL)
		if n, err := accounts.PurgeExpired(ctx); err != nil {
			slog.Warn("purging expired sessions failed", "error", err)
		} else if n > 0 {
			slog.Info("purged expired sessions", "count", n)
		}

		httpOpts = httptransport.Options{Accounts: accounts, RequireSession: cfg.Accounts.RequireSession}
		slog.Info("user accounts enabled", "driver", cfg.Accounts.Driver, "require_session", cfg.Accounts.RequireSession)
	}

	// Initialize enabled transports.
	var transports []transport.Transport

	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC))
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP, httpOpts))
	}

	if len(transports) == 0 {
		slog.Error("no transports enabled, enable at least one in config")
		os.Exit(1)
	}

	// Start health check server.
	healthServer := health.New(cfg.Server.HealthPort)
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start all transports.
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, dispatcher); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	slog.Info("mathvoice ready",
		"transports", len(transports),
		"ocr", recognizer.Name(),
		"generation", generator.Name(),
		"tts", synthesizer.Name(),
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("mathvoice stopped")
}

func newRecognizer(cfg config.OCRConfig) ocr.Recognizer {
	switch cfg.Backend {
	case "mathpix":
		slog.Info("using Mathpix OCR", "endpoint", cfg.Mathpix.Endpoint)
		return mathpix.New(cfg.Mathpix)
	case "vision":
		slog.Info("using vision model OCR", "base_url", cfg.Vision.BaseURL, "model", cfg.Vision.Model)
		return vision.New(cfg.Vision)
	default:
		slog.Error("unknown ocr backend", "backend", cfg.Backend)
		os.Exit(1)
		return nil
	}
}

func newGenerator(cfg config.GenerationConfig) generate.Generator {
	switch cfg.Backend {
	case "openai":
		slog.Info("using OpenAI-compatible generation", "base_url", cfg.OpenAI.BaseURL, "model", cfg.OpenAI.Model)
		return openaigen.New(cfg.OpenAI)
	case "local":
		slog.Info("using local generation", "endpoint", cfg.Local.Endpoint, "model", cfg.Local.Model)
		return localgen.New(cfg.Local)
	default:
		slog.Error("unknown generation backend", "backend", cfg.Backend)
		os.Exit(1)
		return nil
	}
}

func newSynthesizer(cfg config.TTSConfig) tts.Synthesizer {
	switch cfg.Backend {
	case "elevenlabs":
		slog.Info("using ElevenLabs TTS", "model", cfg.ElevenLabs.ModelID, "format", cfg.ElevenLabs.OutputFormat)
		return elevenlabs.New(cfg.ElevenLabs)
	case "piper":
		slog.Info("using Piper TTS", "endpoint", cfg.Piper.Endpoint, "languages", len(cfg.Piper.Endpoints))
		return piper.New(cfg.Piper)
	default:
		slog.Error("unknown tts backend", "backend", cfg.Backend)
		os.Exit(1)
		return nil
	}
}
