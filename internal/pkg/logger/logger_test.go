package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "production", "info")

	l.Info("entry closed", slog.String("entry_id", "e-1"))

	out := buf.String()
	assert.Contains(t, out, `"entry_id":"e-1"`)
	assert.Contains(t, out, `"app":"timeclock"`)
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "development", "warn")

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithAndFrom(t *testing.T) {
	ctx := With(context.Background(), "request_id", "r-42")
	assert.NotNil(t, From(ctx))
	assert.Equal(t, slog.Default(), From(context.Background()))
}
