package asr

import (
	"context"
	"testing"

	"murmur/internal/logging"
)

func newEventOnlyStream() (*streamRecognizer, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	return &streamRecognizer{
		logger:   logging.NewTestLogger(),
		ctx:      ctx,
		cancel:   cancel,
		out:      make(chan Hypothesis, 16),
		sendCh:   make(chan []byte, 1),
		sendDone: make(chan struct{}),
		recvDone: make(chan struct{}),
	}, cancel
}

func collect(r *streamRecognizer, n int) []Hypothesis {
	out := make([]Hypothesis, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, <-r.out)
	}
	return out
}

func TestStreamInterimRevisesTail(t *testing.T) {
	r, cancel := newEventOnlyStream()
	defer cancel()

	r.handleEvent("hello wor", false, false)
	r.handleEvent("hello world", false, false)
	hyps := collect(r, 2)
	if hyps[0].Final || hyps[0].Text != "hello wor" {
		t.Fatalf("first: %+v", hyps[0])
	}
	if hyps[1].Final || hyps[1].Text != "hello world" {
		t.Fatalf("second: %+v", hyps[1])
	}
}

func TestStreamSegmentFinalCommitsAndPrefixesInterims(t *testing.T) {
	r, cancel := newEventOnlyStream()
	defer cancel()

	r.handleEvent("hello world", true, false)
	r.handleEvent("how are", false, false)
	hyps := collect(r, 2)
	if hyps[0].Text != "hello world" || hyps[0].Final {
		t.Fatalf("committed segment: %+v", hyps[0])
	}
	if hyps[1].Text != "hello world how are" || hyps[1].Final {
		t.Fatalf("interim after commit: %+v", hyps[1])
	}
}

func TestStreamUtteranceFinalEmitsFinalAndAdvances(t *testing.T) {
	r, cancel := newEventOnlyStream()
	defer cancel()

	r.handleEvent("hello world", true, false)
	r.handleEvent("how are you", false, true)
	hyps := collect(r, 2)
	final := hyps[1]
	if !final.Final || final.Text != "hello world how are you" {
		t.Fatalf("final: %+v", final)
	}
	if final.Utterance != 0 {
		t.Fatalf("utterance id: %d", final.Utterance)
	}

	// Next utterance carries the advanced id and an empty committed prefix.
	r.handleEvent("fresh start", false, false)
	next := collect(r, 1)[0]
	if next.Text != "fresh start" || next.Utterance != 1 {
		t.Fatalf("next utterance: %+v", next)
	}
}

func TestStreamEmptyInterimNotEmitted(t *testing.T) {
	r, cancel := newEventOnlyStream()
	defer cancel()

	r.handleEvent("", false, false)
	r.handleEvent("", true, false)
	select {
	case h := <-r.out:
		t.Fatalf("unexpected hypothesis: %+v", h)
	default:
	}

	// An empty utterance final is still emitted; the sync layer decides
	// whether silence is announced.
	r.handleEvent("", false, true)
	h := collect(r, 1)[0]
	if !h.Final || h.Text != "" {
		t.Fatalf("empty final: %+v", h)
	}
}
