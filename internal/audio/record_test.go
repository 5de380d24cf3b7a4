package audio

import (
	"os"
	"testing"
	"time"

	"github.com/go-audio/wav"
)

func TestRecorderCommitWritesWav(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRecorder(dir)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	now := time.Now()
	r.Append(Frame{Samples: []float32{0, 0.5, -0.5}, Captured: now})
	r.Append(Frame{Samples: []float32{0.25}, Captured: now.Add(20 * time.Millisecond)})

	path, err := r.Commit()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if path == "" {
		t.Fatalf("expected a written file")
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open wav: %v", err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(buf.Data) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(buf.Data))
	}

	// Buffer resets after commit.
	if p, err := r.Commit(); err != nil || p != "" {
		t.Fatalf("empty commit should be a no-op, got %q %v", p, err)
	}
}

func TestRecorderDiscard(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRecorder(dir)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	r.Append(Frame{Samples: []float32{1, 2}, Captured: time.Now()})
	r.Discard()
	if p, err := r.Commit(); err != nil || p != "" {
		t.Fatalf("discard should empty the buffer, got %q %v", p, err)
	}
}
