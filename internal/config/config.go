package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported LLM providers
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	RedisURL   string
	DataDir    string
	SessionTTL time.Duration

	LLMProvider     string
	ModelName       string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	GeminiAPIKey    string
	OllamaURL       string
	EvaluateTimeout time.Duration

	VideoAPIKey string
	VideoWSURL  string

	WorkerID string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	evaluateTimeout, err := time.ParseDuration(getEnv("EVALUATE_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid EVALUATE_TIMEOUT: %w", err)
	}

	hostname, _ := os.Hostname()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		RedisURL:   getEnv("REDIS_URL", "localhost:6379"),
		DataDir:    getEnv("DATA_DIR", "./data"),
		SessionTTL: sessionTTL,

		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		ModelName:       os.Getenv("MODEL_NAME"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		OllamaURL:       getEnv("OLLAMA_URL", "http://localhost:11434"),
		EvaluateTimeout: evaluateTimeout,

		VideoAPIKey: os.Getenv("VIDEO_API_KEY"),
		VideoWSURL:  os.Getenv("VIDEO_WS_URL"),

		WorkerID: getEnv("WORKER_ID", "worker-"+hostname),
	}

	if cfg.ModelName == "" {
		cfg.ModelName = defaultModel(cfg.LLMProvider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted. Missing LLM and video
// credentials are allowed; those collaborators degrade at runtime.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderOllama:
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q (supported: openai, anthropic, gemini, ollama)", c.LLMProvider)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.EvaluateTimeout <= 0 {
		return errors.New("EVALUATE_TIMEOUT must be positive")
	}
	return nil
}

// LLMAPIKey returns the key for the configured provider. Ollama needs no
// key, so its server URL is returned instead.
func (c *Config) LLMAPIKey() string {
	switch c.LLMProvider {
	case ProviderOllama:
		return c.OllamaURL
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	case ProviderGemini:
		return c.GeminiAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	case ProviderGemini:
		return "gemini-1.5-flash"
	case ProviderOllama:
		return "llama3.1"
	default:
		return "gpt-4o-mini"
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// VideoEnabled reports whether the worker can open real video streams.
func (c *Config) VideoEnabled() bool {
	return c.VideoAPIKey != "" && c.VideoWSURL != ""
}
