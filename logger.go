package hive

import "context"

// Logger defines a structured logging interface compatible with slog.
//
// *slog.Logger satisfies it directly:
//
//	m := hive.New(driver, hive.WithLogger(slog.Default()))
//
// The logging package provides adapters for logrus and zap.
//
// Log lines are an observability side channel. Nothing in hive parses them.
type Logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// noopLogger discards everything. Used when no logger is configured.
type noopLogger struct{}

func (noopLogger) InfoContext(ctx context.Context, msg string, args ...any)  {}
func (noopLogger) WarnContext(ctx context.Context, msg string, args ...any)  {}
func (noopLogger) ErrorContext(ctx context.Context, msg string, args ...any) {}

func defaultLogger() Logger {
	return noopLogger{}
}

func loggerOrDefault(l Logger) Logger {
	if l == nil {
		return defaultLogger()
	}
	return l
}
