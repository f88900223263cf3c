package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the encoder.
type Format string

const (
	// FormatJSON is used by the server.
	FormatJSON Format = "json"
	// FormatConsole is used by the CLI, whose stdout carries results.
	FormatConsole Format = "console"
)

// New constructs a zap.Logger configured for structured JSON logging on stdout.
func New(level string) (*zap.Logger, error) {
	return Build(level, FormatJSON)
}

// Build constructs a zap.Logger with the given level and encoding. Console
// output goes to stderr so it never mixes with command output.
func Build(level string, format Format) (*zap.Logger, error) {
	zapLevel := zapcore.InfoLevel
	if err := zapLevel.Set(strings.ToLower(level)); err != nil {
		return nil, err
	}

	encoder := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	output := []string{"stdout"}
	if format == FormatConsole {
		encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder.CallerKey = ""
		output = []string{"stderr"}
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         string(format),
		EncoderConfig:    encoder,
		OutputPaths:      output,
		ErrorOutputPaths: []string{"stderr"},
	}

	return cfg.Build()
}
