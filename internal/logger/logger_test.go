package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWarnOnceLogsFirstOccurrence(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	defer Set(nil)
	ResetOnce()

	WarnOnce("lights", "too many lights", zap.Int("count", 9))
	WarnOnce("lights", "too many lights", zap.Int("count", 10))
	WarnOnce("shadows", "unsupported shadow")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "too many lights", entries[0].Message)
		assert.Equal(t, int64(9), entries[0].ContextMap()["count"])
		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	}

	ResetOnce()
	WarnOnce("lights", "too many lights")
	assert.Equal(t, 3, logs.Len())
}

func TestErrorOnceLogsAtErrorLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	defer Set(nil)
	ResetOnce()

	ErrorOnce("shadow-point", "light cannot cast shadows")
	ErrorOnce("shadow-point", "light cannot cast shadows")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("loud"))
}

func TestSetNilInstallsNop(t *testing.T) {
	Set(nil)
	assert.NotNil(t, Log)
	Log.Info("discarded")
}
