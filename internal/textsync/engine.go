// Package textsync turns recognizer hypothesis streams into the minimal
// caret-only edit sequence an external text field can absorb: delete N
// characters from the end, insert text at the caret. Nothing here is safe
// for concurrent use; the pipeline drives both the machine and the engine
// from a single goroutine.
package textsync

import (
	"sync/atomic"

	"murmur/internal/output"

	"github.com/sirupsen/logrus"
)

// Unit is the unit the diff (and the surface's delete primitive) counts in.
type Unit int

const (
	UnitRune Unit = iota
	UnitByte
)

// ParseUnit maps the config string to a Unit.
func ParseUnit(s string) Unit {
	if s == "byte" {
		return UnitByte
	}
	return UnitRune
}

// Engine owns the sync state for the active utterance: the last text
// actually applied to the surface and the active utterance id. Each new
// hypothesis becomes at most one suffix edit against that baseline.
type Engine struct {
	surface   output.Surface
	logger    *logrus.Logger
	unit      Unit
	separator string

	lastApplied string
	utterance   atomic.Uint64

	editsApplied atomic.Uint64
	editsSkipped atomic.Uint64
}

// NewEngine returns an Engine writing to surface.
func NewEngine(surface output.Surface, logger *logrus.Logger, unit Unit, separator string) *Engine {
	return &Engine{
		surface:   surface,
		logger:    logger,
		unit:      unit,
		separator: separator,
	}
}

// Apply reconciles the surface with newText. On a final hypothesis the
// terminal separator is appended (when the text is non-empty) and the
// baseline resets to empty for the next utterance.
//
// Focus loss drops the edit instead of queueing it: replaying a stale
// correction into a newly focused, unrelated field would corrupt it. The
// baseline resets so the next diff starts from empty.
//
// A surface failure on a partial leaves state untouched; the divergence
// is purely additive and a later diff retries the correction.
func (e *Engine) Apply(newText string, final bool) {
	if !e.surface.IsFocused() {
		if e.lastApplied != "" || final {
			e.logger.Debugf("surface unfocused, dropping edit for %q", newText)
		}
		e.editsSkipped.Add(1)
		e.lastApplied = ""
		if final {
			e.utterance.Add(1)
		}
		return
	}

	del, insert := Diff(e.lastApplied, newText, e.unit)
	if del == 0 && insert == "" {
		if final {
			e.finish(newText)
		}
		return
	}

	if err := e.surface.ApplyEdit(del, insert); err != nil {
		e.logger.Warnf("apply edit: %v", err)
		if final {
			// The utterance is over; carrying the stale baseline into the
			// next one would make later deletes eat unrelated text. Reset
			// and leave the divergence in place.
			e.lastApplied = ""
			e.utterance.Add(1)
		}
		return
	}
	e.editsApplied.Add(1)
	e.lastApplied = newText

	if final {
		e.finish(newText)
	}
}

// finish appends the separator and resets utterance-scoped state.
func (e *Engine) finish(text string) {
	if e.separator != "" && text != "" {
		if err := e.surface.ApplyEdit(0, e.separator); err != nil {
			e.logger.Warnf("apply separator: %v", err)
		} else {
			e.editsApplied.Add(1)
		}
	}
	e.lastApplied = ""
	e.utterance.Add(1)
}

// LastApplied returns the current baseline (what the surface holds for the
// active utterance).
func (e *Engine) LastApplied() string {
	return e.lastApplied
}

// Utterance returns the number of completed utterances.
func (e *Engine) Utterance() uint64 {
	return e.utterance.Load()
}

// EditsApplied returns the count of edits accepted by the surface.
func (e *Engine) EditsApplied() uint64 {
	return e.editsApplied.Load()
}

// EditsSkipped returns the count of edits dropped due to focus loss.
func (e *Engine) EditsSkipped() uint64 {
	return e.editsSkipped.Load()
}

// Diff computes the suffix edit turning old into new: the length of the
// non-shared tail of old (to delete from the caret) and the text to insert
// in its place. Counting is per rune or per byte, matching whatever unit
// the surface's delete primitive removes.
func Diff(oldText, newText string, unit Unit) (deleteCount int, insert string) {
	if unit == UnitByte {
		p := commonPrefixBytes(oldText, newText)
		return len(oldText) - p, newText[p:]
	}
	oldR := []rune(oldText)
	newR := []rune(newText)
	p := 0
	for p < len(oldR) && p < len(newR) && oldR[p] == newR[p] {
		p++
	}
	return len(oldR) - p, string(newR[p:])
}

func commonPrefixBytes(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
