package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/honeynil/hive"
	"github.com/honeynil/hive/logging"
)

// Log formats accepted by --log-format.
const (
	LogFormatText   = "text"
	LogFormatJSON   = "json"
	LogFormatLogrus = "logrus"
	LogFormatZap    = "zap"
)

// newLogger builds the logger for --log-format. Warnings and errors are
// always logged; info lines only with --verbose.
func newLogger(format string, verbose bool, w io.Writer) (hive.Logger, error) {
	switch format {
	case "", LogFormatText, LogFormatJSON:
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelInfo
		}
		opts := &slog.HandlerOptions{Level: level}
		if format == LogFormatJSON {
			return slog.New(slog.NewJSONHandler(w, opts)), nil
		}
		return slog.New(slog.NewTextHandler(w, opts)), nil

	case LogFormatLogrus:
		l := logrus.New()
		l.SetOutput(w)
		l.SetFormatter(&logrus.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
		l.SetLevel(logrus.WarnLevel)
		if verbose {
			l.SetLevel(logrus.InfoLevel)
		}
		return logging.Logrus(l), nil

	case LogFormatZap:
		level := zapcore.WarnLevel
		if verbose {
			level = zapcore.InfoLevel
		}
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(w),
			level,
		)
		return logging.Zap(zap.New(core)), nil

	default:
		return nil, fmt.Errorf("unknown log format %q (want text, json, logrus or zap)", format)
	}
}
