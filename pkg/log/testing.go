// Package log provides testing utilities for structured logging.
//
// This file contains helpers for capturing and verifying log output during
// tests without interfering with the normal execution flow.

package log

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// TestLogger is a logger implementation designed for testing.
// It captures all log messages in memory for later inspection and verification.
type TestLogger struct {
	mu      sync.Mutex
	level   Level
	fields  []any
	entries *[]TestLogEntry
}

// TestLogEntry is a single captured log record.
type TestLogEntry struct {
	Level   Level
	Message string
	Fields  []any
}

// NewTestLogger creates a new TestLogger with the specified minimum level.
// All log messages at or above the level are captured for later examination.
func NewTestLogger(level Level) *TestLogger {
	entries := make([]TestLogEntry, 0)
	return &TestLogger{level: level, entries: &entries}
}

func (l *TestLogger) log(level Level, msg string, fields ...any) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	all := make([]any, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)
	*l.entries = append(*l.entries, TestLogEntry{Level: level, Message: msg, Fields: all})
}

func (l *TestLogger) Debug(msg string, fields ...any) { l.log(LevelDebug, msg, fields...) }
func (l *TestLogger) Info(msg string, fields ...any)  { l.log(LevelInfo, msg, fields...) }
func (l *TestLogger) Warn(msg string, fields ...any)  { l.log(LevelWarn, msg, fields...) }
func (l *TestLogger) Error(msg string, fields ...any) { l.log(LevelError, msg, fields...) }

// With returns a logger sharing the same capture buffer with extra fields attached.
func (l *TestLogger) With(fields ...any) Logger {
	child := &TestLogger{level: l.level, entries: l.entries}
	child.fields = append(append([]any{}, l.fields...), fields...)
	return child
}

func (l *TestLogger) Enabled(_ context.Context, level Level) bool {
	return level >= l.level
}

// Entries returns a copy of all captured log entries.
func (l *TestLogger) Entries() []TestLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TestLogEntry, len(*l.entries))
	copy(out, *l.entries)
	return out
}

// Contains reports whether any captured message contains the given substring.
func (l *TestLogger) Contains(substr string) bool {
	for _, e := range l.Entries() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// String renders the captured log for debugging failed assertions.
func (l *TestLogger) String() string {
	var b strings.Builder
	for _, e := range l.Entries() {
		fmt.Fprintf(&b, "%s %s %v\n", e.Level, e.Message, e.Fields)
	}
	return b.String()
}

// TestLoggerProvider is a LoggerProvider returning a shared TestLogger.
type TestLoggerProvider struct {
	Logger *TestLogger
}

// NewTestLoggerProvider creates a provider whose loggers all capture into the
// same TestLogger.
func NewTestLoggerProvider(level Level) *TestLoggerProvider {
	return &TestLoggerProvider{Logger: NewTestLogger(level)}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *TestLoggerProvider) GetLogger() Logger { return p.Logger }

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *TestLoggerProvider) GetLoggerWithName(name string) Logger {
	return p.Logger.With(ComponentKey, name)
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *TestLoggerProvider) SetLevel(level Level) { p.Logger.level = level }
