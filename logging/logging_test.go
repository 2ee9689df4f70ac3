package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDefaultLoggerWithWriter(&buf)
	logger.SetLevel(WarnLevel)

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("visible warn", Fields{"channel": 12})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible warn")
	assert.Contains(t, out, "channel=12")
}

func TestDefaultLoggerWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewDefaultLoggerWithWriter(&buf)
	child := parent.WithFields(Fields{"component": "sasnip"})

	parent.Info("from parent")
	child.Info("from child")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.NotContains(t, string(lines[0]), "component=sasnip")
	assert.Contains(t, string(lines[1]), "component=sasnip")
}

func TestDefaultLoggerErrorIncludesCause(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDefaultLoggerWithWriter(&buf)

	logger.Error(errors.New("negative counts"), "estimation failed")

	assert.Contains(t, buf.String(), "estimation failed")
	assert.Contains(t, buf.String(), "negative counts")
}

func TestWithContextPicksUpFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDefaultLoggerWithWriter(&buf)

	ctx := ContextWithFields(context.Background(), Fields{"file": "rbs.dat"})
	ctx = ContextWithFields(ctx, Fields{"run": 3})
	logger.WithContext(ctx).Info("loaded")

	assert.Contains(t, buf.String(), "file=rbs.dat")
	assert.Contains(t, buf.String(), "run=3")
}

func TestSetGlobalLoggerNilFallsBackToNoOp(t *testing.T) {
	previous := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(previous) })

	SetGlobalLogger(nil)
	_, ok := GetGlobalLogger().(*NoOpLogger)
	assert.True(t, ok)

	// must not panic
	Info("discarded")
	WithFields(Fields{"a": 1}).Warn("discarded")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"Warning": WarnLevel,
		"error":   ErrorLevel,
		"fatal":   FatalLevel,
	}
	for name, want := range cases {
		got, ok := ParseLevel(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	got, ok := ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, InfoLevel, got)
}
