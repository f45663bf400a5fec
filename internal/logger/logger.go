// Package logger is the zap-based structured logger shared by every cdr3net
// command and worker.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dbsmedya/cdr3net/internal/config"
)

// Logger is a sugared zap logger that keeps its base logger for Sync.
type Logger struct {
	*zap.SugaredLogger
	base *zap.Logger
}

// New builds a Logger from the logging section of the run configuration.
func New(cfg *config.LoggingConfig) (*Logger, error) {
	core := zapcore.NewCore(encoderFor(cfg.Format), sinkFor(cfg.Output), levelOf(cfg.Level))
	return FromZap(zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))), nil
}

// FromZap wraps an existing zap logger.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{SugaredLogger: z.Sugar(), base: z}
}

// NewDefault logs text at info level to stderr. Components fall back to it
// when no logger is injected.
func NewDefault() *Logger {
	l, _ := New(&config.LoggingConfig{Level: "info", Format: "text", Output: "stderr"})
	return l
}

// NewNop discards everything.
func NewNop() *Logger {
	return FromZap(zap.NewNop())
}

// levelOf maps a configured level name; unknown names mean info.
func levelOf(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoderFor(format string) zapcore.Encoder {
	ec := zapcore.EncoderConfig{
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
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if format == "json" {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

// sinkFor resolves the output setting. A file path is tee'd to stderr so
// long benchmark sweeps stay visible; an unopenable file falls back to
// stderr alone.
func sinkFor(output string) zapcore.WriteSyncer {
	switch output {
	case "", "stderr":
		return zapcore.AddSync(os.Stderr)
	case "stdout":
		return zapcore.AddSync(os.Stdout)
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return zapcore.AddSync(os.Stderr)
	}
	return zapcore.NewMultiWriteSyncer(zapcore.AddSync(f), zapcore.AddSync(os.Stderr))
}

func (l *Logger) with(args ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...), base: l.base}
}

// WithWorkflow tags entries with the workflow name (random, file, directory, benchmark).
func (l *Logger) WithWorkflow(name string) *Logger {
	return l.with("workflow", name)
}

// WithFile tags entries with an input path.
func (l *Logger) WithFile(path string) *Logger {
	return l.with("file", path)
}

// WithSize tags entries with a corpus cardinality.
func (l *Logger) WithSize(n int64) *Logger {
	return l.with("nstrings", n)
}

// WithFields tags entries with arbitrary key/value pairs.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return l.with(args...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.base.Sync()
}
