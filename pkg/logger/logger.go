// Package logger provides opinionated logging capabilities for finassist
package logger

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the log encoding.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// NewLogger builds a logger writing to stdout.
func NewLogger(debug bool, format Format) (*zap.Logger, error) {
	return newLogger(os.Stdout, debug, format)
}

// NewStderrLogger builds a logger writing to stderr, for commands whose
// stdout carries a protocol or user-facing output.
func NewStderrLogger(debug bool, format Format) (*zap.Logger, error) {
	return newLogger(os.Stderr, debug, format)
}

func newLogger(w io.Writer, debug bool, format Format) (*zap.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch format {
	case FormatConsole, "":
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("invalid log format %q: must be %q or %q", format, FormatConsole, FormatJSON)
	}

	// Set log level
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)

	return zap.New(core, zap.AddCaller()), nil
}
