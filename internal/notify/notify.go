// Package notify provides the transient, severity-tagged messages shown to the user.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reporteria/reportviewer/internal/constants"
	"github.com/reporteria/reportviewer/internal/viewmodel"
)

// Severity is the kind of a notification.
type Severity string

const (
	// Error reports a failed action.
	Error Severity = "error"
	// Warning reports a condition worth attention.
	Warning Severity = "warning"
	// Success reports a completed action.
	Success Severity = "success"
	// Info reports anything else.
	Info Severity = "info"
)

// Level returns the slog level matching the severity.
func (s Severity) Level() slog.Level {
	switch s {
	case Error:
		return slog.LevelError
	case Warning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Notification is a message shown until it is dismissed or its timeout expires.
type Notification struct {
	ID           string        `json:"id"`
	Severity     Severity      `json:"severity"`
	Message      string        `json:"message"`
	DismissAfter time.Duration `json:"dismissAfter"`
}

// New returns a notification with a fresh ID and the default timeout.
func New(severity Severity, message string) Notification {
	return Notification{
		ID:           uuid.NewString(),
		Severity:     severity,
		Message:      message,
		DismissAfter: constants.NotificationTimeout,
	}
}

// DismissAfterMillis returns the timeout in milliseconds, as used by the page script.
func (n Notification) DismissAfterMillis() int64 {
	return n.DismissAfter.Milliseconds()
}

// FromAlerts turns report alerts into notifications.
// A collector failure is an error; every other alert is a warning.
func FromAlerts(alerts []viewmodel.Alert) []Notification {
	var ns []Notification
	for _, a := range alerts {
		sev := Warning
		if a.Kind == viewmodel.AlertCollector {
			sev = Error
		}
		ns = append(ns, New(sev, a.Message))
	}
	return ns
}

// Log writes the notifications to logger, each at the level of its severity.
func Log(ctx context.Context, logger *slog.Logger, ns ...Notification) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, n := range ns {
		logger.Log(ctx, n.Severity.Level(), n.Message, "severity", n.Severity, "id", n.ID)
	}
}

// Queue holds the notifications not yet shown. It is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	pending []Notification
}

// Push appends notifications to the queue.
func (q *Queue) Push(ns ...Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, ns...)
}

// Drain returns the pending notifications in push order and empties the queue.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	ns := q.pending
	q.pending = nil
	return ns
}
