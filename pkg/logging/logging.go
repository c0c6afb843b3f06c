package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var root *zap.Logger

// Init builds the process-wide logger. Level accepts the usual zap names
// (debug, info, warn, error); anything unparsable falls back to info.
func Init(level string) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		lvl,
	)
	root = zap.New(core)
}

// Named returns a named sugared logger, initializing the root at info
// level if Init was never called.
func Named(name string) *zap.SugaredLogger {
	if root == nil {
		Init("info")
	}
	return root.Named(name).Sugar()
}

// Sync flushes buffered log entries.
func Sync() {
	if root != nil {
		_ = root.Sync()
	}
}
