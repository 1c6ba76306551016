package logging

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// Level tags an Entry.
type Level string

const (
	LevelVerbose Level = "verbose"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Entry is one formatted message kept by a MemoryLogger.
type Entry struct {
	Level   Level
	Message string
}

// MemoryLogger keeps every message in memory, verbose ones included.
// Tests use it to assert on what a load reported.
type MemoryLogger struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryLogger returns an empty MemoryLogger.
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (l *MemoryLogger) Verbose(format string, args ...interface{}) {
	l.add(LevelVerbose, format, args)
}

func (l *MemoryLogger) Info(format string, args ...interface{}) {
	l.add(LevelInfo, format, args)
}

func (l *MemoryLogger) Error(format string, args ...interface{}) {
	l.add(LevelError, format, args)
}

func (l *MemoryLogger) add(level Level, format string, args []interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.mu.Lock()
	l.entries = append(l.entries, Entry{Level: level, Message: msg})
	l.mu.Unlock()
}

// Entries returns a copy of the recorded messages in order.
func (l *MemoryLogger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Contains reports whether any message at level contains substr.
func (l *MemoryLogger) Contains(level Level, substr string) bool {
	for _, e := range l.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

var _ ilsetl.Logger = (*MemoryLogger)(nil)
