// Package logbuf provides a bounded, owned buffer of user-facing log lines.
// It replaces ambient global log state: main creates one and passes it to the
// components that surface logs to the UI.
package logbuf

import (
	"sync"

	"github.com/rs/zerolog"
)

const DefaultMax = 500

type Buffer struct {
	mu      sync.Mutex
	max     int
	entries []string
}

func New(max int) *Buffer {
	if max <= 0 {
		max = DefaultMax
	}
	return &Buffer{max: max}
}

// Append records one entry, evicting the oldest when full.
func (b *Buffer) Append(entry string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, entry)
	if len(b.entries) > b.max {
		b.entries = b.entries[len(b.entries)-b.max:]
	}
}

// Drain returns all buffered entries and clears the buffer.
func (b *Buffer) Drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, len(b.entries))
	copy(out, b.entries)
	b.entries = b.entries[:0]
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

var _ zerolog.Hook = (*Buffer)(nil)

// Run captures info-and-above log messages so the UI can replay them.
// Wire with logger.Hook(buf).
func (b *Buffer) Run(_ *zerolog.Event, level zerolog.Level, message string) {
	if level < zerolog.InfoLevel || message == "" {
		return
	}
	b.Append(message)
}
