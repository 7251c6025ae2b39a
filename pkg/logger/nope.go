package logger

import "log/slog"

// NewNope returns a logger that discards every record.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
