package audio

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Queue is the bounded buffer between the capture callback and the
// recognizer consumer. Enqueue never blocks: when full, the oldest frame is
// dropped and a counter incremented, since stale audio has little value for
// live captioning. Any number of goroutines may enqueue; exactly one goroutine
// may call Dequeue, which preserves strict arrival order.
type Queue struct {
	mu      sync.Mutex
	frames  []Frame
	max     int
	dropped atomic.Uint64

	// signal wakes the single consumer; capacity 1 so a slow consumer
	// never backs up producers.
	signal chan struct{}
}

// NewQueue returns a queue holding at most max frames.
func NewQueue(max int) *Queue {
	if max < 1 {
		max = 1
	}
	return &Queue{
		max:    max,
		signal: make(chan struct{}, 1),
	}
}

// Enqueue copies samples into an owned buffer and appends the frame.
// Safe to call from the capture callback: no blocking, bounded allocation.
func (q *Queue) Enqueue(samples []float32, captured time.Time) {
	owned := make([]float32, len(samples))
	copy(owned, samples)

	q.mu.Lock()
	q.frames = append(q.frames, Frame{Samples: owned, Captured: captured})
	if len(q.frames) > q.max {
		// Drop oldest, keep recency.
		over := len(q.frames) - q.max
		q.frames = q.frames[over:]
		q.dropped.Add(uint64(over))
	}
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Dequeue returns the next frame in enqueue order, blocking cooperatively
// until one is available or ctx is done. Must only be called from a single
// consumer goroutine.
func (q *Queue) Dequeue(ctx context.Context) (Frame, error) {
	for {
		q.mu.Lock()
		if len(q.frames) > 0 {
			f := q.frames[0]
			q.frames = q.frames[1:]
			remaining := len(q.frames)
			q.mu.Unlock()
			if remaining > 0 {
				// Keep the consumer awake without re-polling.
				select {
				case q.signal <- struct{}{}:
				default:
				}
			}
			return f, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-q.signal:
		}
	}
}

// Len reports the number of buffered frames.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Dropped reports the total number of frames discarded due to overflow.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
