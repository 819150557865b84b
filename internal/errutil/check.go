// Package errutil funnels errors that cannot be returned to the logger.
package errutil

import (
	"log/slog"
)

// LogMsg logs err at warn level with msg if it is not nil. Use it for
// errors that are expected and safe to ignore, like closing a response body.
func LogMsg(err error, msg string, args ...any) {
	if err != nil {
		allArgs := append([]any{"error", err}, args...)
		slog.Warn(msg, allArgs...)
	}
}

// ReportError logs an unexpected error at error level if it is not nil.
func ReportError(err error, msg string, args ...any) {
	if err != nil {
		allArgs := append([]any{"error", err}, args...)
		slog.Error(msg, allArgs...)
	}
}
