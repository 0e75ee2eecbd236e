// Package notify is the port through which the back office surfaces
// transient operator notifications. It replaces a process-wide alert queue:
// the port is injected into whoever needs to warn the operator, so the
// engine packages and their tests stay free of global state.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Levels
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notifier receives operator-facing notifications. Implementations must be
// safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, level, message string)
}

// SlogNotifier writes notifications to the structured log. It is the default
// sink when no delivery channel is wired.
type SlogNotifier struct{}

func (SlogNotifier) Notify(ctx context.Context, level, message string) {
	switch level {
	case LevelError:
		slog.ErrorContext(ctx, "notification", "message", message)
	case LevelWarning:
		slog.WarnContext(ctx, "notification", "message", message)
	default:
		slog.InfoContext(ctx, "notification", "message", message)
	}
}

// Recorder collects notifications for assertions in tests.
type Recorder struct {
	mu      sync.Mutex
	entries []RecordedNotification
}

type RecordedNotification struct {
	Level   string
	Message string
}

func (r *Recorder) Notify(_ context.Context, level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, RecordedNotification{Level: level, Message: message})
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []RecordedNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedNotification(nil), r.entries...)
}
