package internal

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents different logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// Logger provides leveled, structured logging on top of zap
type Logger struct {
	level LogLevel
	sugar *zap.SugaredLogger
}

// NewLogger creates a new logger with the specified level writing human-readable output
func NewLogger(level LogLevel) *Logger {
	return newLogger(level, false)
}

// NewJSONLogger creates a logger with the zap production JSON encoder
func NewJSONLogger(level LogLevel) *Logger {
	return newLogger(level, true)
}

// NewNopLogger discards everything; used by tests and library callers that bring no logger
func NewNopLogger() *Logger {
	return &Logger{level: LogLevelError, sugar: zap.NewNop().Sugar()}
}

// NewDefaultLogger creates a logger based on LOG_LEVEL and LOG_FORMAT environment variables
func NewDefaultLogger() *Logger {
	return newLogger(ParseLogLevel(os.Getenv("LOG_LEVEL")), strings.EqualFold(os.Getenv("LOG_FORMAT"), "json"))
}

// NewConfiguredLogger builds a logger from the log.level and log.format settings
func NewConfiguredLogger(level, format string) *Logger {
	return newLogger(ParseLogLevel(level), strings.EqualFold(strings.TrimSpace(format), "json"))
}

// ParseLogLevel maps ERROR/WARN/INFO/DEBUG/TRACE to a LogLevel, defaulting to INFO
func ParseLogLevel(levelStr string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "ERROR":
		return LogLevelError
	case "WARN":
		return LogLevelWarn
	case "DEBUG":
		return LogLevelDebug
	case "TRACE":
		return LogLevelTrace
	default:
		return LogLevelInfo
	}
}

func newLogger(level LogLevel, jsonOutput bool) *Logger {
	var encoder zapcore.Encoder
	if jsonOutput {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	// zap has no trace level; trace rides on debug and is filtered here.
	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), zapLevel(level))
	return &Logger{level: level, sugar: zap.New(core).Sugar()}
}

func zapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LogLevelError:
		return zapcore.ErrorLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// Error logs error messages with alternating key/value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	if l.level >= LogLevelError {
		l.sugar.Errorw(msg, keysAndValues...)
	}
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	if l.level >= LogLevelWarn {
		l.sugar.Warnw(msg, keysAndValues...)
	}
}

// Info logs info messages
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	if l.level >= LogLevelInfo {
		l.sugar.Infow(msg, keysAndValues...)
	}
}

// Debug logs debug messages
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	if l.level >= LogLevelDebug {
		l.sugar.Debugw(msg, keysAndValues...)
	}
}

// Trace logs per-row detail
func (l *Logger) Trace(msg string, keysAndValues ...interface{}) {
	if l.level >= LogLevelTrace {
		l.sugar.Debugw(msg, append(keysAndValues, "trace", true)...)
	}
}

// With returns a child logger carrying the given fields on every entry
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{level: l.level, sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return l.level
}

// Global logger instance
var DefaultLogger = NewDefaultLogger()
