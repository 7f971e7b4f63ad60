package log

import (
	"fmt"
	"log/slog"
	"strings"
)

// Parses "debug", "info", "warn" or "error" (case-insensitive).
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return 0, fmt.Errorf("invalid log level '%s' (must be debug/info/warn/error)", name)
	}
	return level, nil
}
