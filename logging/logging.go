// Package logging adapts third-party loggers to hive.Logger.
//
// hive logs with slog-style key/value pairs. *slog.Logger satisfies
// hive.Logger directly; this package covers logrus and zap.
//
//	m := hive.New(driver, hive.WithLogger(logging.Logrus(logrus.StandardLogger())))
//	m := hive.New(driver, hive.WithLogger(logging.Zap(zapLogger)))
package logging

import "fmt"

// badKey is used for a value without a key, matching log/slog.
const badKey = "!BADKEY"

// pairs converts slog-style args into ordered key/value pairs.
func pairs(args []any) ([]string, []any) {
	keys := make([]string, 0, len(args)/2+1)
	values := make([]any, 0, len(args)/2+1)

	for i := 0; i < len(args); {
		key, ok := args[i].(string)
		if !ok || i+1 >= len(args) {
			keys = append(keys, badKey)
			values = append(values, args[i])
			i++
			continue
		}
		keys = append(keys, key)
		values = append(values, normalize(args[i+1]))
		i += 2
	}
	return keys, values
}

// normalize renders errors as strings so formatters that drop unexported
// error fields still show the message.
func normalize(v any) any {
	if err, ok := v.(error); ok && err != nil {
		return err.Error()
	}
	if s, ok := v.(fmt.Stringer); ok && s != nil {
		return s.String()
	}
	return v
}
