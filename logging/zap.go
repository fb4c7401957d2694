package logging

import (
	"context"

	"go.uber.org/zap"

	"github.com/honeynil/hive"
)

type zapLogger struct {
	logger *zap.Logger
}

// Zap adapts a zap logger to hive.Logger. A nil logger discards everything.
func Zap(l *zap.Logger) hive.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{logger: l.WithOptions(zap.AddCallerSkip(1))}
}

func (l *zapLogger) InfoContext(_ context.Context, msg string, args ...any) {
	l.logger.Info(msg, fields(args)...)
}

func (l *zapLogger) WarnContext(_ context.Context, msg string, args ...any) {
	l.logger.Warn(msg, fields(args)...)
}

func (l *zapLogger) ErrorContext(_ context.Context, msg string, args ...any) {
	l.logger.Error(msg, fields(args)...)
}

func fields(args []any) []zap.Field {
	keys, values := pairs(args)
	out := make([]zap.Field, len(keys))
	for i, k := range keys {
		out[i] = zap.Any(k, values[i])
	}
	return out
}
