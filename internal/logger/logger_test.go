package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestNewWritesToOutputPath(t *testing.T) {
	out := filepath.Join(t.TempDir(), "agent.log")
	l, err := New(Config{Level: "debug", OutputPaths: []string{out}})
	require.NoError(t, err)

	l.With(String("run_id", "r1")).Info("hello", Int("n", 1))
	_ = l.Sync()

	assert.FileExists(t, out)
}

func TestWrapCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core)).With(String("stream", "repins"))

	l.Warn("retry exhausted", Int("attempts", 3))

	entries := logs.FilterMessage("retry exhausted").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "repins", entries[0].ContextMap()["stream"])
}
