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

func TestSpinnerDrawsAndStops(t *testing.T) {
	var out syncBuffer
	s := startSpinnerTo(context.Background(), &out, "Rendering SVG...")
	time.Sleep(200 * time.Millisecond)
	s.Stop()
	s.Stop()

	got := out.String()
	if !strings.Contains(got, "Rendering SVG...") {
		t.Errorf("spinner output %q lacks the message", got)
	}
	if !strings.HasSuffix(got, "\r") {
		t.Error("spinner did not clear its line")
	}
}

func TestSpinnerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := startSpinnerTo(ctx, &syncBuffer{}, "working")
	cancel()

	select {
	case <-s.stopped:
	case <-time.After(time.Second):
		t.Fatal("spinner still running after cancel")
	}
	s.Stop()
}
