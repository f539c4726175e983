package logging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewLoggerFromCore(core), logs
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		t.Run("format="+format, func(t *testing.T) {
			l, err := NewLogger(LogConfig{Level: "debug", Format: format, OutputPaths: []string{"stderr"}})
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestNewLogger_BadOutputPath(t *testing.T) {
	_, err := NewLogger(LogConfig{OutputPaths: []string{"/nonexistent-dir/zzz/mmp.log"}})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"DEBUG":   zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestZapLogger_FieldsAreTyped(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	l.Info("run finished",
		String("run_id", "r-1"),
		Int("pairs", 3),
		Int64("rows", 10),
		Float64("ratio", 1.2),
		Bool("duplicates", true),
		Duration("took", time.Second),
		Strings("columns", []string{"pIC50"}),
		Err(errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "run finished", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "r-1", ctx["run_id"])
	assert.EqualValues(t, 3, ctx["pairs"])
	assert.EqualValues(t, 10, ctx["rows"])
	assert.Equal(t, 1.2, ctx["ratio"])
	assert.Equal(t, true, ctx["duplicates"])
	assert.Equal(t, time.Second, ctx["took"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestZapLogger_LevelFiltering(t *testing.T) {
	l, logs := newObservedLogger(zapcore.WarnLevel)

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	child := l.Named("engine").With(String("run_id", "abc"))
	child.Info("context done")
	l.Info("parent")

	all := logs.All()
	require.Len(t, all, 2)
	assert.Equal(t, "engine", all[0].LoggerName)
	assert.Equal(t, "abc", all[0].ContextMap()["run_id"])
	assert.NotContains(t, all[1].ContextMap(), "run_id")
}

func TestErr_Nil(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Debug("x")
		l.Info("x")
		l.Warn("x")
		l.Error("x")
		l.With(String("k", "v")).Named("n").Info("x")
	})
	assert.NoError(t, l.Sync())
}

func TestDefault_SetAndGet(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	l, logs := newObservedLogger(zapcore.InfoLevel)
	SetDefault(l)
	SetDefault(nil)

	Default().Info("hello")
	assert.Equal(t, 1, logs.Len())
}

func TestContextPropagation(t *testing.T) {
	l, logs := newObservedLogger(zapcore.InfoLevel)

	ctx := WithContext(context.Background(), l)
	FromContext(ctx).Info("from ctx")
	assert.Equal(t, 1, logs.Len())

	assert.NotNil(t, FromContext(context.Background()))
}

func TestNewLoggerWithLevel_Dynamic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	level := zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	l, err := NewLoggerWithLevel(LogConfig{Format: "json", OutputPaths: []string{path}}, level)
	require.NoError(t, err)

	l.Info("suppressed")
	require.NoError(t, l.Sync())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "suppressed")

	level.SetLevel(zapcore.InfoLevel)
	l.Info("emitted")
	require.NoError(t, l.Sync())
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "emitted")
}

//Personal.AI order the ending
