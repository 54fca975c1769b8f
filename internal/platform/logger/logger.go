package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. Text to stdout; components receive it by
// injection rather than reaching for the default logger.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
