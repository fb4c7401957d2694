package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/honeynil/hive"
)

func TestPairs(t *testing.T) {
	keys, values := pairs([]any{"id", "auth_001", "error", errors.New("boom"), "status", hive.StatusFailed, "dangling"})

	assert.Equal(t, []string{"id", "error", "status", badKey}, keys)
	assert.Equal(t, []any{"auth_001", "boom", "failed", "dangling"}, values)
}

func TestPairsNonStringKey(t *testing.T) {
	keys, values := pairs([]any{42, "id", "auth_001"})

	assert.Equal(t, []string{badKey, "id"}, keys)
	assert.Equal(t, []any{42, "auth_001"}, values)
}

func TestLogrus(t *testing.T) {
	base, hook := logrustest.NewNullLogger()
	l := Logrus(base)
	ctx := context.Background()

	l.InfoContext(ctx, "migration result recorded", "id", "auth_001", "duration_ms", int64(12))
	l.WarnContext(ctx, "dropping migration result", "id", "", "error", errors.New("empty id"))
	l.ErrorContext(ctx, "boom")

	require.Len(t, hook.Entries, 3)

	info := hook.Entries[0]
	assert.Equal(t, logrus.InfoLevel, info.Level)
	assert.Equal(t, "migration result recorded", info.Message)
	assert.Equal(t, "auth_001", info.Data["id"])
	assert.Equal(t, int64(12), info.Data["duration_ms"])

	warn := hook.Entries[1]
	assert.Equal(t, logrus.WarnLevel, warn.Level)
	assert.Equal(t, "empty id", warn.Data["error"])

	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestLogrusNilUsesStandardLogger(t *testing.T) {
	l, ok := Logrus(nil).(*logrusLogger)
	require.True(t, ok)
	assert.Same(t, logrus.StandardLogger(), l.logger)
}

func TestZap(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := Zap(zap.New(core))
	ctx := context.Background()

	l.InfoContext(ctx, "migration result recorded", "id", "auth_001", "status", hive.StatusApplied)
	l.WarnContext(ctx, "migration failed", "id", "auth_002", "error", "syntax error")
	l.ErrorContext(ctx, "boom", "odd")

	require.Equal(t, 3, logs.Len())
	entries := logs.All()

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, map[string]interface{}{"id": "auth_001", "status": "applied"}, entries[0].ContextMap())

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "syntax error", entries[1].ContextMap()["error"])

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "odd", entries[2].ContextMap()[badKey])
}

func TestZapNil(t *testing.T) {
	assert.NotPanics(t, func() {
		Zap(nil).InfoContext(context.Background(), "ignored", "k", "v")
	})
}

func TestAdaptersWithTracker(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tracker := hive.NewTracker(nil, hive.WithTrackerLogger(Zap(zap.New(core))))

	tracker.Record(context.Background(), hive.Result{ID: ""})

	require.Equal(t, 1, logs.FilterMessage("dropping migration result").Len())
}
