package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestWithGameAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	id := uuid.MustParse("7f8e1c1a-5d0b-4b1e-9a36-3a1f0b6c9d42")

	WithRequestID(WithGame(base, id), "req-1").Info("hello")
	assert.Contains(t, buf.String(), "game_id=7f8e1c1a-5d0b-4b1e-9a36-3a1f0b6c9d42")
	assert.Contains(t, buf.String(), "request_id=req-1")

	buf.Reset()
	WithRequestID(base, "").Info("hello")
	assert.NotContains(t, buf.String(), "request_id")
}
