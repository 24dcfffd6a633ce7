// Package logging provides the structured logger used across the code
// graph engine. It keeps the named, level-filtered API the rest of the
// codebase expects, backed by zap instead of the standard library logger so
// every line carries structured fields.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity level of log messages.
type LogLevel int

const (
	// DEBUG level for detailed debugging information.
	DEBUG LogLevel = iota
	// INFO level for general information.
	INFO
	// WARN level for warning messages.
	WARN
	// ERROR level for error messages.
	ERROR
	// FATAL level for fatal errors that cause program exit.
	FATAL
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case FATAL:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is a named, level-filtered structured logger.
type Logger struct {
	level LogLevel
	name  string
	sugar *zap.SugaredLogger
}

// NewLogger creates a new logger instance at the given level.
func NewLogger(level LogLevel) *Logger {
	return newNamed("", level)
}

// NewLoggerWithName creates a new logger instance with a specific name.
func NewLoggerWithName(name string) *Logger {
	return newNamed(name, INFO)
}

// DefaultLogger returns a logger with INFO level.
func DefaultLogger() *Logger {
	return NewLogger(INFO)
}

// NewTestLogger creates a new logger instance for testing.
func NewTestLogger(name string) *Logger {
	return newNamed(name, DEBUG)
}

func newNamed(name string, level LogLevel) *Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(cfg)
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zap.NewAtomicLevelAt(level.zapLevel()))
	base := zap.New(core)
	if name != "" {
		base = base.Named(name)
	}
	return &Logger{level: level, name: name, sugar: base.Sugar()}
}

// GetName returns the logger name.
func (l *Logger) GetName() string {
	return l.name
}

// With returns a child logger with the given structured key/value pairs
// attached to every subsequent message.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{level: l.level, name: l.name, sugar: l.sugar.With(keysAndValues...)}
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level <= DEBUG {
		l.sugar.Debugf(format, args...)
	}
}

// Info logs an info message.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level <= INFO {
		l.sugar.Infof(format, args...)
	}
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level <= WARN {
		l.sugar.Warnf(format, args...)
	}
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	if l.level <= ERROR {
		l.sugar.Errorf(format, args...)
	}
}

// Fatal logs a fatal message and exits the program.
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.sugar.Fatalf(format, args...)
}

// Sync flushes any buffered log entries. Call before process exit.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// defaultLogger is the process-wide convenience logger. Core components
// never reach for this directly; they take a *Logger as a constructor
// argument. It exists only for the CLI entrypoint and package-level helpers.
var defaultLogger = DefaultLogger()

// Debug logs a debug message using the default logger.
func Debug(format string, args ...interface{}) { defaultLogger.Debug(format, args...) }

// Info logs an info message using the default logger.
func Info(format string, args ...interface{}) { defaultLogger.Info(format, args...) }

// Warn logs a warning message using the default logger.
func Warn(format string, args ...interface{}) { defaultLogger.Warn(format, args...) }

// Error logs an error message using the default logger.
func Error(format string, args ...interface{}) { defaultLogger.Error(format, args...) }

// Fatal logs a fatal message using the default logger and exits.
func Fatal(format string, args ...interface{}) { defaultLogger.Fatal(format, args...) }
