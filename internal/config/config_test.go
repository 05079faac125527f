package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env
	for _, k := range []string{"PORT", "ENVIRONMENT", "LOG_LEVEL", "REDIS_URL", "LLM_PROVIDER", "MODEL_NAME", "SESSION_TTL", "EVALUATE_TIMEOUT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "localhost:6379", cfg.RedisURL)
	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.ModelName)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.EvaluateTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("EVALUATE_TIMEOUT", "5s")
	t.Setenv("MODEL_NAME", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, cfg.LLMProvider)
	assert.Equal(t, "sk-test", cfg.LLMAPIKey())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.EvaluateTimeout)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.ModelName)
}

func TestLoad_Ollama(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("MODEL_NAME", "")
	t.Setenv("OLLAMA_URL", "http://ollama:11434")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.LLMProvider)
	assert.Equal(t, "llama3.1", cfg.ModelName)
	assert.Equal(t, "http://ollama:11434", cfg.LLMAPIKey())
}

func TestLoad_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("LLM_PROVIDER", "venice")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("SESSION_TTL", "forever")
	_, err = Load()
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}
