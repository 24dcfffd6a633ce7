package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func withObserver(level LogLevel) (*Logger, *observer.ObservedLogs) {
	core, observed := observer.New(zapcore.DebugLevel)
	return &Logger{level: level, sugar: zap.New(core).Sugar()}, observed
}

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{FATAL, "FATAL"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestLogLevel_Ordering(t *testing.T) {
	assert.Less(t, int(DEBUG), int(INFO))
	assert.Less(t, int(INFO), int(WARN))
	assert.Less(t, int(WARN), int(ERROR))
	assert.Less(t, int(ERROR), int(FATAL))
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(DEBUG)
	require.NotNil(t, logger)
	assert.Equal(t, DEBUG, logger.level)
	assert.NotNil(t, logger.sugar)
}

func TestNewLoggerWithName(t *testing.T) {
	logger := NewLoggerWithName("parser")
	require.NotNil(t, logger)
	assert.Equal(t, INFO, logger.level)
	assert.Equal(t, "parser", logger.GetName())
}

func TestDefaultLogger(t *testing.T) {
	logger := DefaultLogger()
	require.NotNil(t, logger)
	assert.Equal(t, INFO, logger.level)
}

func TestNewTestLogger(t *testing.T) {
	logger := NewTestLogger("test")
	require.NotNil(t, logger)
	assert.Equal(t, DEBUG, logger.level)
}

func TestLogger_Debug(t *testing.T) {
	logger, observed := withObserver(DEBUG)
	logger.Debug("parsing %s", "main.go")

	require.Equal(t, 1, observed.Len())
	assert.Contains(t, observed.All()[0].Message, "parsing main.go")
}

func TestLogger_Debug_FilteredByLevel(t *testing.T) {
	logger, observed := withObserver(INFO)
	logger.Debug("this should not appear")

	assert.Equal(t, 0, observed.Len())
}

func TestLogger_Info_FilteredByLevel(t *testing.T) {
	logger, observed := withObserver(WARN)
	logger.Info("this should not appear")

	assert.Equal(t, 0, observed.Len())
}

func TestLogger_Warn_FilteredByLevel(t *testing.T) {
	logger, observed := withObserver(ERROR)
	logger.Warn("this should not appear")

	assert.Equal(t, 0, observed.Len())
}

func TestLogger_Error(t *testing.T) {
	logger, observed := withObserver(ERROR)
	logger.Error("parse failed: %s", "eof")

	require.Equal(t, 1, observed.Len())
	assert.Contains(t, observed.All()[0].Message, "parse failed: eof")
}

func TestLogger_With(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	base := &Logger{level: DEBUG, sugar: zap.New(core).Sugar()}

	scoped := base.With("file", "main.go", "language", "go")
	scoped.Info("extracted symbols")

	require.Equal(t, 1, observed.Len())
	entry := observed.All()[0]
	fields := entry.ContextMap()
	assert.Equal(t, "main.go", fields["file"])
	assert.Equal(t, "go", fields["language"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name         string
		loggerLevel  LogLevel
		expectedSubs []string
	}{
		{"DEBUG logs everything", DEBUG, []string{"debug msg", "info msg", "warn msg", "error msg"}},
		{"INFO filters DEBUG", INFO, []string{"info msg", "warn msg", "error msg"}},
		{"WARN filters DEBUG and INFO", WARN, []string{"warn msg", "error msg"}},
		{"ERROR filters DEBUG, INFO, WARN", ERROR, []string{"error msg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, observed := withObserver(tt.loggerLevel)

			logger.Debug("debug msg")
			logger.Info("info msg")
			logger.Warn("warn msg")
			logger.Error("error msg")

			require.Equal(t, len(tt.expectedSubs), observed.Len())
			for i, msg := range tt.expectedSubs {
				assert.Equal(t, msg, observed.All()[i].Message)
			}
		})
	}
}

func TestLogger_EmptyMessage(t *testing.T) {
	logger, observed := withObserver(INFO)
	logger.Info("")

	require.Equal(t, 1, observed.Len())
	assert.Equal(t, "", observed.All()[0].Message)
}

func TestGlobalDebug(t *testing.T) {
	restore := defaultLogger
	defer func() { defaultLogger = restore }()

	logger, observed := withObserver(DEBUG)
	defaultLogger = logger

	Debug("global debug test")

	require.Equal(t, 1, observed.Len())
	assert.Contains(t, observed.All()[0].Message, "global debug test")
}

func TestGlobalError(t *testing.T) {
	restore := defaultLogger
	defer func() { defaultLogger = restore }()

	logger, observed := withObserver(ERROR)
	defaultLogger = logger

	Error("global error test")

	require.Equal(t, 1, observed.Len())
	assert.Contains(t, observed.All()[0].Message, "global error test")
}
