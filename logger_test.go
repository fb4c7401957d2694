package hive_test

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/honeynil/hive"
)

var _ hive.Logger = (*slog.Logger)(nil)

type logLine struct {
	level string
	msg   string
	args  []any
}

// captureLogger records log lines for assertions.
type captureLogger struct {
	mu    sync.Mutex
	lines []logLine
}

func (l *captureLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, logLine{level: level, msg: msg, args: args})
}

func (l *captureLogger) InfoContext(_ context.Context, msg string, args ...any) {
	l.add("info", msg, args)
}

func (l *captureLogger) WarnContext(_ context.Context, msg string, args ...any) {
	l.add("warn", msg, args)
}

func (l *captureLogger) ErrorContext(_ context.Context, msg string, args ...any) {
	l.add("error", msg, args)
}

// count returns how many lines at level contain substr in their message.
func (l *captureLogger) count(level, substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if line.level == level && strings.Contains(line.msg, substr) {
			n++
		}
	}
	return n
}
