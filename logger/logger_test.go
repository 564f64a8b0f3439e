package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeRedactsSecrets(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.Info("configured", "api_key", "sk-123", "model", "gpt-4o")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.Equal(t, "gpt-4o", fields["model"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("dev", "chatty")
	assert.Error(t, err)

	l, err := New("prod", "warn")
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := Nop()
	assert.Same(t, l, OrNop(l))
}
