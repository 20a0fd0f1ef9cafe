// Package logbuf captures recent slog output in memory so the admin API can
// serve it without touching process stdout.
package logbuf

import (
	"log/slog"
	"sync"
	"time"
)

// Entry is a single captured log record.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Buffer is a fixed-capacity ring of log entries, safe for concurrent use.
type Buffer struct {
	mu   sync.Mutex
	ring []Entry
	head int // next write position
	n    int // entries stored, up to cap
}

// New creates a buffer holding up to size entries.
func New(size int) *Buffer {
	return &Buffer{ring: make([]Entry, size)}
}

// Write appends an entry, evicting the oldest once full.
func (b *Buffer) Write(e Entry) {
	b.mu.Lock()
	b.ring[b.head] = e
	b.head = (b.head + 1) % len(b.ring)
	if b.n < len(b.ring) {
		b.n++
	}
	b.mu.Unlock()
}

// Query returns entries at or above minLevel recorded after since, oldest
// first. A zero since matches everything; limit <= 0 means no limit. When
// more than limit entries match, the newest ones win.
func (b *Buffer) Query(since time.Time, minLevel slog.Level, limit int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	oldest := 0
	if b.n == len(b.ring) {
		oldest = b.head
	}

	var out []Entry
	for i := 0; i < b.n; i++ {
		e := b.ring[(oldest+i)%len(b.ring)]
		if !since.IsZero() && e.Time.Before(since) {
			continue
		}
		if levelFromString(e.Level) < minLevel {
			continue
		}
		out = append(out, e)
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func levelFromString(s string) slog.Level {
	switch s {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
