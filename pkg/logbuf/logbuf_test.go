package logbuf

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

func TestBufferEvictsOldestWhenFull(t *testing.T) {
	t.Parallel()

	b := New(3)
	for i := 0; i < 5; i++ {
		b.Append(fmt.Sprintf("entry-%d", i))
	}

	got := b.Drain()
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0] != "entry-2" || got[2] != "entry-4" {
		t.Fatalf("unexpected entries: %v", got)
	}
}

func TestBufferDrainClears(t *testing.T) {
	t.Parallel()

	b := New(10)
	b.Append("a")
	if got := b.Drain(); len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if b.Len() != 0 {
		t.Fatalf("expected empty buffer after drain, got %d", b.Len())
	}
}

func TestBufferHookIgnoresDebug(t *testing.T) {
	t.Parallel()

	b := New(10)
	b.Run(nil, zerolog.DebugLevel, "debug line")
	b.Run(nil, zerolog.InfoLevel, "info line")
	b.Run(nil, zerolog.InfoLevel, "")

	got := b.Drain()
	if len(got) != 1 || got[0] != "info line" {
		t.Fatalf("unexpected entries: %v", got)
	}
}
