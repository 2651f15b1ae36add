package logger

import "context"

// LoggerContext accumulates attributes over the course of an operation so
// later log lines carry everything learned so far.
type LoggerContext struct {
	logger *Logger
}

// NewLoggerContext constructs a LoggerContext around an existing logger.
func NewLoggerContext(logger *Logger) *LoggerContext {
	return &LoggerContext{logger: logger}
}

// Add attaches additional attributes to every subsequent log line.
func (lc *LoggerContext) Add(args ...any) {
	lc.logger = lc.logger.With(args...)
}

// Debug logs at LevelDebug with the accumulated attributes.
func (lc *LoggerContext) Debug(ctx context.Context, msg string, args ...any) {
	lc.logger.Debugc(ctx, 3, msg, args...)
}

// Info logs at LevelInfo with the accumulated attributes.
func (lc *LoggerContext) Info(ctx context.Context, msg string, args ...any) {
	lc.logger.Infoc(ctx, 3, msg, args...)
}

// Warn logs at LevelWarn with the accumulated attributes.
func (lc *LoggerContext) Warn(ctx context.Context, msg string, args ...any) {
	lc.logger.Warnc(ctx, 3, msg, args...)
}

// Error logs at LevelError with the accumulated attributes.
func (lc *LoggerContext) Error(ctx context.Context, msg string, args ...any) {
	lc.logger.Errorc(ctx, 3, msg, args...)
}
