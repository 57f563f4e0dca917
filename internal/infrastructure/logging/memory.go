package logging

import (
	"context"
	"sync"

	"github.com/alexisbeaulieu97/stepwise/internal/ports"
)

const defaultMemoryLimit = 1000

// Level names the severity of a captured entry.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Entry is one captured log call.
type Entry struct {
	Level   Level
	Message string
	Fields  []interface{}
	ctx     context.Context
}

// Field returns the last value logged under key.
func (e Entry) Field(key string) (interface{}, bool) {
	var (
		value interface{}
		found bool
	)
	for i := 0; i+1 < len(e.Fields); i += 2 {
		if k, ok := e.Fields[i].(string); ok && k == key {
			value, found = e.Fields[i+1], true
		}
	}
	return value, found
}

// Memory keeps log entries in a bounded ring so they can be inspected or
// replayed later. The interactive runner uses it while the terminal belongs
// to the TUI.
type Memory struct {
	mu      sync.Mutex
	limit   int
	entries []Entry
}

// NewMemory creates a buffer holding at most limit entries (default 1000).
func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = defaultMemoryLimit
	}
	return &Memory{limit: limit, entries: make([]Entry, 0, 16)}
}

// Logger returns a ports.Logger writing into the buffer.
func (m *Memory) Logger() ports.Logger {
	return &memoryLogger{memory: m}
}

// Entries returns a copy of the captured entries in order.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

// Replay writes every buffered entry to delegate, preserving order, and
// empties the buffer.
func (m *Memory) Replay(delegate ports.Logger) {
	if delegate == nil {
		return
	}
	m.mu.Lock()
	entries := m.entries
	m.entries = make([]Entry, 0, 16)
	m.mu.Unlock()

	for _, entry := range entries {
		switch entry.Level {
		case LevelDebug:
			delegate.Debug(entry.ctx, entry.Message, entry.Fields...)
		case LevelWarn:
			delegate.Warn(entry.ctx, entry.Message, entry.Fields...)
		case LevelError:
			delegate.Error(entry.ctx, entry.Message, entry.Fields...)
		default:
			delegate.Info(entry.ctx, entry.Message, entry.Fields...)
		}
	}
}

func (m *Memory) add(entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == m.limit {
		copy(m.entries, m.entries[1:])
		m.entries[len(m.entries)-1] = entry
		return
	}
	m.entries = append(m.entries, entry)
}

type memoryLogger struct {
	memory *Memory
	fields []interface{}
}

func (l *memoryLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, LevelDebug, msg, fields)
}

func (l *memoryLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, LevelInfo, msg, fields)
}

func (l *memoryLogger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, LevelWarn, msg, fields)
}

func (l *memoryLogger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, LevelError, msg, fields)
}

func (l *memoryLogger) With(fields ...interface{}) ports.Logger {
	next := append(append([]interface{}{}, l.fields...), fields...)
	return &memoryLogger{memory: l.memory, fields: next}
}

func (l *memoryLogger) log(ctx context.Context, level Level, msg string, fields []interface{}) {
	if l == nil || l.memory == nil {
		return
	}
	payload := append(append([]interface{}{}, l.fields...), fields...)
	if ctx == nil {
		ctx = context.Background()
	}
	l.memory.add(Entry{Level: level, Message: msg, Fields: payload, ctx: ctx})
}
