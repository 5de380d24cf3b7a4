package textsync

import (
	"testing"

	"murmur/internal/asr"
	"murmur/internal/logging"
	"murmur/internal/output"
)

type eventLog struct {
	starts int
	ends   int
	finals []string
}

func (el *eventLog) events() Events {
	return Events{
		OnSpeechStart: func() { el.starts++ },
		OnSpeechEnd: func(text string) {
			el.ends++
			el.finals = append(el.finals, text)
		},
	}
}

func newTestMachine(announceSilence bool) (*Machine, *output.FakeSurface, *eventLog) {
	f := output.NewFakeSurface()
	e := NewEngine(f, logging.NewTestLogger(), UnitRune, " ")
	el := &eventLog{}
	return NewMachine(e, el.events(), logging.NewTestLogger(), nil, announceSilence), f, el
}

func TestMachineSpeechStartFiresOnce(t *testing.T) {
	m, _, el := newTestMachine(false)

	m.Observe(asr.Hypothesis{Text: "hel"})
	m.Observe(asr.Hypothesis{Text: "hello"})
	m.Observe(asr.Hypothesis{Text: "hello world", Final: true})
	if el.starts != 1 || el.ends != 1 {
		t.Fatalf("starts=%d ends=%d", el.starts, el.ends)
	}
	if m.Speaking() {
		t.Fatalf("machine still speaking after final")
	}
	if m.Utterances() != 1 {
		t.Fatalf("utterances = %d", m.Utterances())
	}
}

func TestMachineFullCycle(t *testing.T) {
	m, f, el := newTestMachine(false)

	m.Observe(asr.Hypothesis{Text: "hello wor"})
	m.Observe(asr.Hypothesis{Text: "hello world", Final: true})
	m.Observe(asr.Hypothesis{Text: "bye"})
	m.Observe(asr.Hypothesis{Text: "bye", Final: true})

	if got := f.Text(); got != "hello world bye " {
		t.Fatalf("surface holds %q", got)
	}
	if el.starts != 2 || el.ends != 2 {
		t.Fatalf("starts=%d ends=%d", el.starts, el.ends)
	}
	if el.finals[0] != "hello world" || el.finals[1] != "bye" {
		t.Fatalf("finals: %v", el.finals)
	}
}

func TestMachineEmptyFinalAfterPartialsEndsUtterance(t *testing.T) {
	m, f, el := newTestMachine(false)

	m.Observe(asr.Hypothesis{Text: "hel"})
	m.Observe(asr.Hypothesis{Text: "", Final: true})
	if m.Speaking() {
		t.Fatalf("machine still speaking")
	}
	if el.starts != 1 || el.ends != 1 {
		t.Fatalf("starts=%d ends=%d", el.starts, el.ends)
	}
	if got := f.Text(); got != "" {
		t.Fatalf("partial text not retracted: %q", got)
	}
}

func TestMachineSilentUtteranceDropped(t *testing.T) {
	m, f, el := newTestMachine(false)

	m.Observe(asr.Hypothesis{Text: "", Final: true})
	if el.starts != 0 || el.ends != 0 {
		t.Fatalf("silence raised events: starts=%d ends=%d", el.starts, el.ends)
	}
	if m.Utterances() != 0 {
		t.Fatalf("utterances = %d", m.Utterances())
	}
	if len(f.Ops()) != 0 {
		t.Fatalf("silence touched the surface: %+v", f.Ops())
	}
}

func TestMachineSilentUtteranceAnnounced(t *testing.T) {
	m, f, el := newTestMachine(true)

	m.Observe(asr.Hypothesis{Text: "", Final: true})
	if el.starts != 1 || el.ends != 1 {
		t.Fatalf("starts=%d ends=%d", el.starts, el.ends)
	}
	if len(f.Ops()) != 0 {
		t.Fatalf("empty final touched the surface: %+v", f.Ops())
	}
}

func TestMachineEmptyPartialIgnored(t *testing.T) {
	m, _, el := newTestMachine(false)

	m.Observe(asr.Hypothesis{Text: ""})
	if m.Speaking() || el.starts != 0 {
		t.Fatalf("empty partial started an utterance")
	}
}

func TestMachineFlushPromotesLastPartial(t *testing.T) {
	m, f, el := newTestMachine(false)

	m.Observe(asr.Hypothesis{Text: "half spoken"})
	m.Flush()
	if got := f.Text(); got != "half spoken " {
		t.Fatalf("surface holds %q", got)
	}
	if el.ends != 1 || el.finals[0] != "half spoken" {
		t.Fatalf("ends=%d finals=%v", el.ends, el.finals)
	}
	if m.Speaking() {
		t.Fatalf("machine still speaking after flush")
	}

	// Idle flush is a no-op.
	m.Flush()
	if el.ends != 1 {
		t.Fatalf("idle flush fired events")
	}
}
