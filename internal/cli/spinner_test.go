package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer shared with the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerUpdate(t *testing.T) {
	var out syncBuffer
	s := newSpinnerTo(context.Background(), &out, "Rendering 0/2 documents...")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Update("Rendering %d/%d documents...", 1, 2)
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	got := out.String()
	for _, want := range []string{"Rendering 0/2", "Rendering 1/2"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %q", want, got)
		}
	}
	if s.Cancelled() {
		t.Error("Cancelled() = true after Stop")
	}
}

func TestSpinnerContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := newSpinnerTo(ctx, &syncBuffer{}, "Converting to PNG...")
	s.Start()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Cancelled() = false after context timeout")
	}
	s.Stop()
}

func TestSpinnerStop(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		s := newSpinnerTo(context.Background(), &syncBuffer{}, "x")
		s.Start()
		s.Stop()
		s.Stop()
	})

	t.Run("before start", func(t *testing.T) {
		var out syncBuffer
		s := newSpinnerTo(context.Background(), &out, "x")
		s.Stop()
		if out.String() != "" {
			t.Errorf("unstarted spinner wrote %q", out.String())
		}
	})
}
