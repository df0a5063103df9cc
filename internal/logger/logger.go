package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It is a no-op logger until Init is called.
var Log = zap.NewNop()

var (
	onceMu   sync.Mutex
	onceSeen = make(map[string]struct{})
)

// Init installs a development console logger at debug level.
func Init() {
	InitWith(zapcore.DebugLevel)
}

// InitWith installs a console logger at the given level.
func InitWith(level zapcore.Level) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return
	}
	Log = l
}

// Set replaces the process-wide logger. Tests use it to install observers.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	Log = l
}

// ParseLevel maps a config string to a zap level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// WarnOnce logs msg at warn level the first time key is seen.
func WarnOnce(key, msg string, fields ...zap.Field) {
	if first(key) {
		Log.Warn(msg, fields...)
	}
}

// ErrorOnce is WarnOnce at error level. Both share one set of keys.
func ErrorOnce(key, msg string, fields ...zap.Field) {
	if first(key) {
		Log.Error(msg, fields...)
	}
}

func first(key string) bool {
	onceMu.Lock()
	defer onceMu.Unlock()
	if _, seen := onceSeen[key]; seen {
		return false
	}
	onceSeen[key] = struct{}{}
	return true
}

// ResetOnce forgets all keys recorded by WarnOnce and ErrorOnce.
func ResetOnce() {
	onceMu.Lock()
	onceSeen = make(map[string]struct{})
	onceMu.Unlock()
}
