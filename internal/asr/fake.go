package asr

import (
	"context"
	"sync"
	"sync/atomic"

	"murmur/internal/audio"
)

// Fake is a scriptable recognizer for tests: hypotheses are pushed by the
// test instead of being decoded from audio.
type Fake struct {
	out     chan Hypothesis
	frames  atomic.Int64
	closeMu sync.Mutex
	closed  bool
}

// NewFake returns a Fake with a buffered hypothesis channel.
func NewFake() *Fake {
	return &Fake{out: make(chan Hypothesis, 64)}
}

func (f *Fake) Feed(ctx context.Context, frame audio.Frame) error {
	f.frames.Add(1)
	return nil
}

func (f *Fake) Hypotheses() <-chan Hypothesis {
	return f.out
}

// Emit delivers a hypothesis to the consumer.
func (f *Fake) Emit(h Hypothesis) {
	f.closeMu.Lock()
	defer f.closeMu.Unlock()
	if f.closed {
		return
	}
	f.out <- h
}

// FramesFed reports how many frames the pipeline delivered.
func (f *Fake) FramesFed() int64 {
	return f.frames.Load()
}

func (f *Fake) Close() error {
	f.closeMu.Lock()
	defer f.closeMu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.out)
	return nil
}
