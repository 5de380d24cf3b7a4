package textsync

import (
	"murmur/internal/asr"

	"github.com/sirupsen/logrus"
)

// Events receives utterance lifecycle notifications. Any field may be nil.
// OnText fires for every hypothesis forwarded to the sync engine, final and
// partial alike; OnSpeechStart fires exactly once per utterance, before the
// first OnText of that utterance; OnSpeechEnd fires after the final OnText.
type Events struct {
	OnSpeechStart func()
	OnText        func(text string, final bool)
	OnSpeechEnd   func(finalText string)
}

// Machine tracks the utterance lifecycle over a hypothesis stream and
// drives the sync engine. It is idle until the first hypothesis of an
// utterance arrives, speaking until that utterance's final, then idle
// again. Not safe for concurrent use.
type Machine struct {
	engine *Engine
	events Events
	logger *logrus.Logger
	vocab  *Vocabulary

	// announceSilence controls whether an utterance whose only hypothesis
	// is an empty final (silence misdetected as speech) still raises
	// start/end events. Default off: nothing was said, nothing happened.
	announceSilence bool

	speaking    bool
	lastPartial string
	utterances  uint64
}

// NewMachine returns an idle Machine feeding engine. vocab may be nil.
func NewMachine(engine *Engine, events Events, logger *logrus.Logger, vocab *Vocabulary, announceSilence bool) *Machine {
	return &Machine{
		engine:          engine,
		events:          events,
		logger:          logger,
		vocab:           vocab,
		announceSilence: announceSilence,
	}
}

// Observe folds one hypothesis into the machine.
//
// Partials mark the start of an utterance and update the surface. A final
// ends the utterance regardless of its text: an empty final after partials
// retracts everything the partials inserted. An empty final with no prior
// partial is dropped entirely unless announceSilence is set, so silence
// that the recognizer briefly mistook for speech leaves no trace.
func (m *Machine) Observe(h asr.Hypothesis) {
	h.Text = m.vocab.Apply(h.Text)
	if !h.Final {
		if h.Text == "" {
			return
		}
		m.begin()
		m.lastPartial = h.Text
		if m.events.OnText != nil {
			m.events.OnText(h.Text, false)
		}
		m.engine.Apply(h.Text, false)
		return
	}

	if !m.speaking && h.Text == "" && !m.announceSilence {
		m.logger.Debug("dropping silent utterance")
		return
	}
	m.begin()
	if m.events.OnText != nil {
		m.events.OnText(h.Text, true)
	}
	m.engine.Apply(h.Text, true)
	m.end(h.Text)
}

// Flush force-ends the active utterance, promoting the last partial to a
// final. Used on pause and shutdown so half-spoken text is committed
// rather than orphaned. No-op when idle.
func (m *Machine) Flush() {
	if !m.speaking {
		return
	}
	text := m.lastPartial
	m.logger.Debugf("flushing active utterance %q", text)
	if m.events.OnText != nil {
		m.events.OnText(text, true)
	}
	m.engine.Apply(text, true)
	m.end(text)
}

// Speaking reports whether an utterance is in flight.
func (m *Machine) Speaking() bool {
	return m.speaking
}

// Utterances returns the number of completed utterances.
func (m *Machine) Utterances() uint64 {
	return m.utterances
}

func (m *Machine) begin() {
	if m.speaking {
		return
	}
	m.speaking = true
	m.lastPartial = ""
	if m.events.OnSpeechStart != nil {
		m.events.OnSpeechStart()
	}
}

func (m *Machine) end(finalText string) {
	m.speaking = false
	m.lastPartial = ""
	m.utterances++
	if m.events.OnSpeechEnd != nil {
		m.events.OnSpeechEnd(finalText)
	}
}
