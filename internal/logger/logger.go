package logger

import (
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/jwebster45206/date-engine/internal/config"
)

// Setup builds the process logger and installs it as the slog default.
// Production writes JSON; everything else writes text, with source
// locations at debug level.
func Setup(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: cfg.LogLevel <= slog.LevelDebug,
	}

	var handler slog.Handler
	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	l := slog.New(handler).With("env", cfg.Environment)
	slog.SetDefault(l)
	return l
}

func WithGame(l *slog.Logger, gameID uuid.UUID) *slog.Logger {
	return l.With("game_id", gameID.String())
}

// WithRequestID tags queued-request logs. Empty ids are left off.
func WithRequestID(l *slog.Logger, requestID string) *slog.Logger {
	if requestID == "" {
		return l
	}
	return l.With("request_id", requestID)
}
