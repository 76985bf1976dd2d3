// Package logging provides the process-wide diagnostic sink.
//
// A Logger owns one append-only plain-text file. Construction deletes any
// file already at the path, so every run starts with an empty log. Lines
// have the form
//
//	2006-01-02 15:04:05.000 - INFO - message
//
// The Logger is built once by the caller and handed to every component
// that needs it. Close must be called before the process exits.
package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted by Log.
const (
	LevelDebug   = "DEBUG"
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
)

const timeLayout = "2006-01-02 15:04:05.000"

// Config controls where and how the logger writes.
type Config struct {
	// Path is the log file. It is removed and recreated by New.
	Path string
	// Console mirrors entries at or above ConsoleLevel to stderr.
	Console      bool
	ConsoleLevel string
}

// Logger is a leveled, timestamped file logger backed by zap.
type Logger struct {
	zl     *zap.Logger
	file   *os.File
	path   string
	closed bool
	mu     sync.Mutex
}

// New truncates the log at cfg.Path and opens it for appending.
func New(cfg Config) (*Logger, error) {
	if cfg.Path == "" {
		return nil, errors.New("logging: empty log path")
	}
	if err := os.Remove(cfg.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("logging: remove previous log: %w", err)
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open %s: %w", cfg.Path, err)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(f), zapcore.DebugLevel),
	}
	if cfg.Console {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig()),
			zapcore.Lock(os.Stderr),
			parseLevel(cfg.ConsoleLevel),
		))
	}

	return &Logger{
		zl:   zap.New(zapcore.NewTee(cores...)),
		file: f,
		path: cfg.Path,
	}, nil
}

// NewFromZap wraps an existing zap logger. The result owns no file, so
// Close only syncs. Tests use it with zaptest/observer cores.
func NewFromZap(zl *zap.Logger) *Logger {
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return NewFromZap(zap.NewNop())
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeLevel:      encodeLevel,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " - ",
	}
}

// encodeLevel spells the warn level out in full.
func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch l {
	case zapcore.WarnLevel:
		enc.AppendString(LevelWarning)
	default:
		enc.AppendString(l.CapitalString())
	}
}

// parseLevel maps a level name to a zap level. Anything unrecognized is
// DEBUG.
func parseLevel(name string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarning, "WARN":
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.DebugLevel
	}
}

// Log writes msg at the named level.
func (l *Logger) Log(level, msg string, fields ...zap.Field) {
	if ce := l.zl.Check(parseLevel(level), msg); ce != nil {
		ce.Write(fields...)
	}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zl.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.zl.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.zl.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.zl.Error(msg, fields...) }

// Zap exposes the underlying zap logger for libraries that want one.
func (l *Logger) Zap() *zap.Logger { return l.zl }

// Path returns the log file path, or "" for loggers without a file.
func (l *Logger) Path() string { return l.path }

// Close flushes buffered entries and closes the file. Safe to call more
// than once.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	_ = l.zl.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
