// Package monitoring owns process logging. Commands build a zap logger and
// install it with Use; library packages log through the Logf hook so tests
// can redirect or mute them.
package monitoring

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.Logger]

func init() {
	current.Store(zap.NewNop())
}

// Logf is the package-level diagnostic logger used by library code. It writes
// through the installed zap logger at info level and may be replaced by
// SetLogger.
var Logf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	L().Sugar().Infof(format, v...)
}

// SetLogger replaces Logf. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Options controls logger construction.
type Options struct {
	// Verbose enables debug level.
	Verbose bool
	// Console switches from JSON to human-readable encoding.
	Console bool
	// OutputPath redirects output away from stderr, e.g. while a terminal UI
	// owns the screen.
	OutputPath string
}

// NewLogger builds a zap logger from a production config.
func NewLogger(opts Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if opts.Console {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if opts.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if opts.OutputPath != "" {
		cfg.OutputPaths = []string{opts.OutputPath}
		cfg.ErrorOutputPaths = []string{opts.OutputPath}
	}
	return cfg.Build()
}

// Use installs l as the process logger: zap's globals, L and Logf all write
// through it.
func Use(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	current.Store(l)
	zap.ReplaceGlobals(l)
	sugar := l.Sugar()
	Logf = sugar.Infof
}

// L returns the installed logger. It is a no-op logger until Use is called.
func L() *zap.Logger {
	return current.Load()
}
