// Package logger builds the zap logger shared by the server and the client.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger holds the process logger. Log is a no-op logger until Init is called.
type Logger struct {
	Log *zap.Logger

	format string
	output string
}

// Option customises a Logger before Init.
type Option func(*Logger)

// WithFormat selects "console" or "json" encoding.
func WithFormat(format string) Option {
	return func(l *Logger) { l.format = format }
}

// WithOutput selects "stdout", "stderr" or a file path.
func WithOutput(output string) Option {
	return func(l *Logger) { l.output = output }
}

// New returns a Logger writing JSON to stdout once initialised.
func New(opts ...Option) *Logger {
	l := &Logger{Log: zap.NewNop(), format: "json", output: "stdout"}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Init builds the logger for the given level name.
func (l *Logger) Init(level string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	writer, err := createWriter(l.output)
	if err != nil {
		return err
	}
	core := zapcore.NewCore(createEncoder(l.format), writer, lvl)
	l.Log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

func createEncoder(format string) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if format == "console" {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewJSONEncoder(cfg)
}

func createWriter(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return zapcore.AddSync(f), nil
}
