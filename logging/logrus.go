package logging

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/honeynil/hive"
)

type logrusLogger struct {
	logger logrus.FieldLogger
}

// Logrus adapts a logrus logger or entry to hive.Logger. A nil logger uses
// logrus.StandardLogger().
func Logrus(l logrus.FieldLogger) hive.Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &logrusLogger{logger: l}
}

func (l *logrusLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.entry(ctx, args).Info(msg)
}

func (l *logrusLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.entry(ctx, args).Warn(msg)
}

func (l *logrusLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.entry(ctx, args).Error(msg)
}

func (l *logrusLogger) entry(ctx context.Context, args []any) *logrus.Entry {
	keys, values := pairs(args)
	fields := make(logrus.Fields, len(keys))
	for i, k := range keys {
		fields[k] = values[i]
	}
	return l.logger.WithFields(fields).WithContext(ctx)
}
