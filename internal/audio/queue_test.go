package audio

import (
	"context"
	"sync"
	"testing"
	"time"
)

func frameOf(v float32) []float32 {
	return []float32{v}
}

func TestQueueOrderPreserved(t *testing.T) {
	q := NewQueue(64)
	now := time.Now()
	for i := 0; i < 50; i++ {
		q.Enqueue(frameOf(float32(i)), now)
	}
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		f, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue %d: %v", i, err)
		}
		if f.Samples[0] != float32(i) {
			t.Fatalf("out of order: got %v at position %d", f.Samples[0], i)
		}
	}
}

func TestQueueDropsOldestOnOverflow(t *testing.T) {
	q := NewQueue(4)
	now := time.Now()
	for i := 0; i < 10; i++ {
		q.Enqueue(frameOf(float32(i)), now)
	}
	if got := q.Dropped(); got != 6 {
		t.Fatalf("expected 6 dropped frames, got %d", got)
	}
	if q.Len() != 4 {
		t.Fatalf("expected 4 buffered frames, got %d", q.Len())
	}
	// Survivors must be the most recent frames, still in order.
	ctx := context.Background()
	for want := 6; want < 10; want++ {
		f, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if f.Samples[0] != float32(want) {
			t.Fatalf("expected frame %d, got %v", want, f.Samples[0])
		}
	}
}

func TestEnqueueCopiesSamples(t *testing.T) {
	q := NewQueue(4)
	buf := []float32{1, 2, 3}
	q.Enqueue(buf, time.Now())
	buf[0] = 99 // hardware reusing its buffer

	f, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if f.Samples[0] != 1 {
		t.Fatalf("frame shares storage with caller buffer")
	}
}

func TestEnqueueNeverBlocks(t *testing.T) {
	q := NewQueue(2)
	done := make(chan struct{})
	go func() {
		// No consumer at all; every call must return promptly.
		for i := 0; i < 10_000; i++ {
			q.Enqueue(frameOf(float32(i)), time.Now())
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("enqueue blocked with no consumer")
	}
	if q.Dropped() == 0 {
		t.Fatalf("expected drops under overflow")
	}
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := NewQueue(4)
	got := make(chan Frame, 1)
	go func() {
		f, err := q.Dequeue(context.Background())
		if err != nil {
			return
		}
		got <- f
	}()
	time.Sleep(20 * time.Millisecond)
	q.Enqueue(frameOf(7), time.Now())
	select {
	case f := <-got:
		if f.Samples[0] != 7 {
			t.Fatalf("unexpected frame %v", f.Samples[0])
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("consumer never woke up")
	}
}

func TestDequeueHonorsContext(t *testing.T) {
	q := NewQueue(4)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := q.Dequeue(ctx); err == nil {
		t.Fatalf("expected context error on empty queue")
	}
}

func TestConcurrentProducersSingleConsumer(t *testing.T) {
	const producers = 4
	const perProducer = 500
	q := NewQueue(producers * perProducer)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(frameOf(float32(p)), time.Now())
			}
		}(p)
	}
	wg.Wait()

	ctx := context.Background()
	counts := make(map[float32]int)
	for i := 0; i < producers*perProducer; i++ {
		f, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		counts[f.Samples[0]]++
	}
	for p := 0; p < producers; p++ {
		if counts[float32(p)] != perProducer {
			t.Fatalf("producer %d: expected %d frames, got %d", p, perProducer, counts[float32(p)])
		}
	}
	if q.Dropped() != 0 {
		t.Fatalf("unexpected drops: %d", q.Dropped())
	}
}
