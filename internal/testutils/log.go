package testutils

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ExpectedRecord is a log record a test expects to be emitted.
type ExpectedRecord struct {
	Level   slog.Level
	Message string
}

// Compare asserts that have matches the expected level and contains the expected message.
func (want ExpectedRecord) Compare(t *testing.T, have slog.Record) {
	t.Helper()

	assert.Equal(t, want.Level, have.Level, "Expected Level did not match real Level")

	if want.Message == "" {
		return
	}
	assert.Contains(t, have.Message, want.Message, "Real Message does not contain Expected")
}

// MockHandler is a slog.Handler recording every handled record. It is safe for concurrent use.
type MockHandler struct {
	mu          sync.Mutex
	handleCalls []slog.Record
}

// NewMockHandler returns a new MockHandler.
func NewMockHandler() *MockHandler {
	return &MockHandler{}
}

// Enabled implements Handler.Enabled.
func (h *MockHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements Handler.Handle.
func (h *MockHandler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.handleCalls = append(h.handleCalls, record.Clone())
	return nil
}

// WithAttrs implements Handler.WithAttrs. Attributes are not recorded.
func (h *MockHandler) WithAttrs([]slog.Attr) slog.Handler {
	return h
}

// WithGroup implements Handler.WithGroup. Groups are not recorded.
func (h *MockHandler) WithGroup(string) slog.Handler {
	return h
}

// Records returns a copy of the handled records, in order.
func (h *MockHandler) Records() []slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]slog.Record(nil), h.handleCalls...)
}

// AssertRecords checks that the handled records match want, in order.
func (h *MockHandler) AssertRecords(t *testing.T, want ...ExpectedRecord) {
	t.Helper()

	have := h.Records()
	if !assert.Len(t, have, len(want), "Unexpected number of log records") {
		return
	}
	for i, w := range want {
		w.Compare(t, have[i])
	}
}
