// Package config handles loading and validating the mathvoice configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration for the mathvoice daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	OCR        OCRConfig        `mapstructure:"ocr"`
	Generation GenerationConfig `mapstructure:"generation"`
	TTS        TTSConfig        `mapstructure:"tts"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Accounts   AccountsConfig   `mapstructure:"accounts"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	Port            int  `mapstructure:"port"`
	MaxMessageBytes int  `mapstructure:"max_message_bytes"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Port           int           `mapstructure:"port"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// OCRConfig selects and configures the image recognition backend.
type OCRConfig struct {
	Backend string        `mapstructure:"backend"` // "mathpix" or "vision"
	Timeout time.Duration `mapstructure:"timeout"`
	Mathpix MathpixConfig `mapstructure:"mathpix"`
	Vision  VisionConfig  `mapstructure:"vision"`
}

// MathpixConfig holds Mathpix API credentials.
type MathpixConfig struct {
	AppID    string `mapstructure:"app_id"`
	AppKey   string `mapstructure:"app_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// VisionConfig holds settings for an OpenAI-compatible vision model used as OCR.
type VisionConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// GenerationConfig selects and configures the script generation backend.
type GenerationConfig struct {
	Backend string        `mapstructure:"backend"` // "openai" or "local"
	Timeout time.Duration `mapstructure:"timeout"`
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Local   LocalConfig   `mapstructure:"local"`
}

// OpenAIConfig holds settings for an OpenAI-compatible chat completions API.
// The default base URL is Gemini's OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
}

// LocalConfig holds self-hosted LLM settings.
type LocalConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"` // Ollama model name (e.g., "llama3.2")
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	Backend    string           `mapstructure:"backend"` // "elevenlabs" or "piper"
	Timeout    time.Duration    `mapstructure:"timeout"`
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs"`
	Piper      PiperConfig      `mapstructure:"piper"`
}

// ElevenLabsConfig holds ElevenLabs API settings.
type ElevenLabsConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	ModelID      string `mapstructure:"model_id"`
	OutputFormat string `mapstructure:"output_format"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// For a single Piper instance that serves all languages, set Endpoint.
// For per-language instances, set Endpoints which maps narration language
// names ("english", "spanish") to individual Wyoming TCP endpoints.
// If both are set, Endpoints takes precedence and Endpoint is the fallback.
type PiperConfig struct {
	Endpoint  string            `mapstructure:"endpoint"`  // Default Wyoming TCP endpoint (host:port)
	Endpoints map[string]string `mapstructure:"endpoints"` // language -> Wyoming TCP endpoint
	Voices    map[string]string `mapstructure:"voices"`    // language -> Piper voice model name
}

// PipelineConfig tunes the lecture pipeline.
type PipelineConfig struct {
	// ExtractEquations enables the equation list. When false the list is always empty.
	ExtractEquations bool `mapstructure:"extract_equations"`

	// DefaultVoice is used by transports when the caller omits a voice id.
	DefaultVoice string `mapstructure:"default_voice"`
}

// AccountsConfig configures user registration and login.
type AccountsConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Driver         string        `mapstructure:"driver"`        // "sqlite3" or "postgres"
	DatabasePath   string        `mapstructure:"database_path"` // sqlite3 file
	DSN            string        `mapstructure:"dsn"`           // postgres connection string
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	RequireSession bool          `mapstructure:"require_session"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// A .env file in the working directory is loaded into the process environment
// first. If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./mathvoice.yaml, ./configs/mathvoice.yaml, /etc/mathvoice/mathvoice.yaml.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("mathvoice")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/mathvoice")
	}

	// Environment variables: MATHVOICE_SERVER_HEALTH_PORT, MATHVOICE_TTS_BACKEND, etc.
	v.SetEnvPrefix("MATHVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional: env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${ELEVENLABS_API_KEY}")
	cfg.OCR.Mathpix.AppID = resolveEnvRef(cfg.OCR.Mathpix.AppID)
	cfg.OCR.Mathpix.AppKey = resolveEnvRef(cfg.OCR.Mathpix.AppKey)
	cfg.OCR.Vision.APIKey = resolveEnvRef(cfg.OCR.Vision.APIKey)
	cfg.Generation.OpenAI.APIKey = resolveEnvRef(cfg.Generation.OpenAI.APIKey)
	cfg.TTS.ElevenLabs.APIKey = resolveEnvRef(cfg.TTS.ElevenLabs.APIKey)
	cfg.Accounts.DSN = resolveEnvRef(cfg.Accounts.DSN)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.grpc.max_message_bytes", 16<<20)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.http.max_upload_bytes", 10<<20)
	v.SetDefault("transports.http.request_timeout", 2*time.Minute)
	v.SetDefault("ocr.backend", "mathpix")
	v.SetDefault("ocr.timeout", 30*time.Second)
	v.SetDefault("ocr.mathpix.app_id", "${MATHPIX_APP_ID}")
	v.SetDefault("ocr.mathpix.app_key", "${MATHPIX_APP_KEY}")
	v.SetDefault("ocr.mathpix.endpoint", "https://api.mathpix.com/v3/text")
	v.SetDefault("ocr.vision.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("ocr.vision.model", "google/gemini-2.5-flash")
	v.SetDefault("generation.backend", "openai")
	v.SetDefault("generation.timeout", 60*time.Second)
	v.SetDefault("generation.openai.api_key", "${GEMINI_API_KEY}")
	v.SetDefault("generation.openai.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("generation.openai.model", "gemini-2.5-flash")
	v.SetDefault("generation.openai.temperature", 0.4)
	v.SetDefault("generation.local.endpoint", "http://localhost:11434/api/generate")
	v.SetDefault("generation.local.model", "llama3")
	v.SetDefault("tts.backend", "elevenlabs")
	v.SetDefault("tts.timeout", 60*time.Second)
	v.SetDefault("tts.elevenlabs.api_key", "${ELEVENLABS_API_KEY}")
	v.SetDefault("tts.elevenlabs.base_url", "https://api.elevenlabs.io/v1")
	v.SetDefault("tts.elevenlabs.model_id", "eleven_multilingual_v2")
	v.SetDefault("tts.elevenlabs.output_format", "mp3_44100_128")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("pipeline.extract_equations", false)
	v.SetDefault("pipeline.default_voice", "JBFqnCBsd6RMkjVDRZzb")
	v.SetDefault("accounts.enabled", true)
	v.SetDefault("accounts.driver", "sqlite3")
	v.SetDefault("accounts.database_path", "mathvoice.db")
	v.SetDefault("accounts.dsn", "${MATHVOICE_DATABASE_URL}")
	v.SetDefault("accounts.session_ttl", 24*time.Hour)
	v.SetDefault("accounts.require_session", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks backend names and the credentials each selected backend needs.
func (c *Config) Validate() error {
	var errs []error

	switch c.OCR.Backend {
	case "mathpix":
		if c.OCR.Mathpix.AppID == "" || c.OCR.Mathpix.AppKey == "" || isUnresolved(c.OCR.Mathpix.AppID) || isUnresolved(c.OCR.Mathpix.AppKey) {
			errs = append(errs, errors.New("ocr.mathpix: app_id and app_key are required"))
		}
	case "vision":
		if c.OCR.Vision.APIKey == "" || isUnresolved(c.OCR.Vision.APIKey) {
			errs = append(errs, errors.New("ocr.vision: api_key is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("ocr: unknown backend %q", c.OCR.Backend))
	}

	switch c.Generation.Backend {
	case "openai":
		if c.Generation.OpenAI.APIKey == "" || isUnresolved(c.Generation.OpenAI.APIKey) {
			errs = append(errs, errors.New("generation.openai: api_key is required"))
		}
	case "local":
		if c.Generation.Local.Endpoint == "" {
			errs = append(errs, errors.New("generation.local: endpoint is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("generation: unknown backend %q", c.Generation.Backend))
	}

	switch c.TTS.Backend {
	case "elevenlabs":
		if c.TTS.ElevenLabs.APIKey == "" || isUnresolved(c.TTS.ElevenLabs.APIKey) {
			errs = append(errs, errors.New("tts.elevenlabs: api_key is required"))
		}
	case "piper":
		if c.TTS.Piper.Endpoint == "" && len(c.TTS.Piper.Endpoints) == 0 {
			errs = append(errs, errors.New("tts.piper: endpoint or endpoints is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("tts: unknown backend %q", c.TTS.Backend))
	}

	if c.Accounts.Enabled {
		switch c.Accounts.Driver {
		case "sqlite3":
			if c.Accounts.DatabasePath == "" {
				errs = append(errs, errors.New("accounts: database_path is required for sqlite3"))
			}
		case "postgres":
			if c.Accounts.DSN == "" || isUnresolved(c.Accounts.DSN) {
				errs = append(errs, errors.New("accounts: dsn is required for postgres"))
			}
		default:
			errs = append(errs, fmt.Errorf("accounts: unknown driver %q", c.Accounts.Driver))
		}
	}

	if !c.Transports.HTTP.Enabled && !c.Transports.GRPC.Enabled {
		errs = append(errs, errors.New("transports: enable at least one of http or grpc"))
	}

	return errors.Join(errs...)
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// isUnresolved reports whether val is still a "${VAR}" reference.
func isUnresolved(val string) bool {
	return strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}")
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
