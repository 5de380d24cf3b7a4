// Package asr defines the recognizer oracle contract: audio frames in,
// hypothesis events out. The pipeline feeds frames from exactly one
// goroutine and consumes hypotheses from exactly one goroutine; backends
// may revise partial text freely until they mark an utterance final.
package asr

import (
	"context"
	"fmt"

	"murmur/internal/audio"
	"murmur/internal/config"

	"github.com/sirupsen/logrus"
)

// Hypothesis is one transcript guess from the recognizer. Partial
// hypotheses for the same utterance are not monotonic: later partials may
// revise earlier text. Final marks end of utterance.
type Hypothesis struct {
	Text      string
	Final     bool
	Utterance uint64
}

// Recognizer converts a serial stream of canonical audio frames into
// hypothesis events. Feed must only be called from a single goroutine;
// streaming decode state is temporally sensitive and tolerates neither
// reordering nor concurrent submission.
type Recognizer interface {
	Feed(ctx context.Context, frame audio.Frame) error
	Hypotheses() <-chan Hypothesis
	// Close flushes any in-flight utterance as final and closes the
	// hypothesis channel.
	Close() error
}

// New returns the configured recognizer backend.
func New(cfg *config.Config, logger *logrus.Logger) (Recognizer, error) {
	switch cfg.ASR.Backend {
	case "stream":
		return newStreamRecognizer(cfg, logger)
	case "whisper":
		return newWhisperRecognizer(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown asr backend %q", cfg.ASR.Backend)
	}
}
