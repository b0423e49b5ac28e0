// Package logging builds the zap logger shared by every command.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where logs go
type Options struct {
	Level  string // debug, info, warn, error; LOG_LEVEL overrides it
	Path   string // log file, empty to skip
	Stdout bool   // also write to stdout, for the API server
}

// ParseLevel resolves the level from LOG_LEVEL, then the configured value,
// falling back to info
func ParseLevel(configured string) zapcore.Level {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if levelStr == "" {
		levelStr = strings.ToLower(configured)
	}
	level, err := zapcore.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		return zapcore.InfoLevel
	}
	return level
}

// New builds a console logger and installs it as the zap global
func New(opts Options) (*zap.Logger, error) {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if opts.Stdout {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	outputs := make([]string, 0, 2)
	if opts.Path != "" {
		outputs = append(outputs, opts.Path)
	}
	if opts.Stdout {
		outputs = append(outputs, "stdout")
	}

	// The TUI owns the terminal, so with no file and no stdout logging is off
	if len(outputs) == 0 {
		logger := zap.NewNop()
		zap.ReplaceGlobals(logger)
		return logger, nil
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(opts.Level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
