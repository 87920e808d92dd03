// Package notify delivers short user-visible notices for state changes
// and failures.
package notify

import "log/slog"

// Notifier receives transient user-facing messages. Implementations must
// not block the caller.
type Notifier interface {
	Notice(msg string, args ...any)
}

// LogNotifier writes notices through slog at info level.
type LogNotifier struct{}

func NewLog() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notice(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Discard drops all notices. Useful in tests.
type Discard struct{}

func (Discard) Notice(msg string, args ...any) {}
