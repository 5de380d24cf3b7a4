package textsync

import (
	"errors"
	"testing"

	"murmur/internal/logging"
	"murmur/internal/output"
)

func TestDiffAppendOnly(t *testing.T) {
	del, ins := Diff("hello wor", "hello world", UnitRune)
	if del != 0 || ins != "ld" {
		t.Fatalf("got delete=%d insert=%q", del, ins)
	}
}

func TestDiffCorrection(t *testing.T) {
	del, ins := Diff("hello word", "hello world", UnitRune)
	if del != 1 || ins != "ld" {
		t.Fatalf("got delete=%d insert=%q", del, ins)
	}
}

func TestDiffFullReplace(t *testing.T) {
	del, ins := Diff("abc", "xyz", UnitRune)
	if del != 3 || ins != "xyz" {
		t.Fatalf("got delete=%d insert=%q", del, ins)
	}
}

func TestDiffIdentical(t *testing.T) {
	del, ins := Diff("same", "same", UnitRune)
	if del != 0 || ins != "" {
		t.Fatalf("got delete=%d insert=%q", del, ins)
	}
}

func TestDiffRuneVsByte(t *testing.T) {
	// "héllo" -> "hello": the multibyte é splits differently per unit.
	del, ins := Diff("héllo", "hello", UnitRune)
	if del != 4 || ins != "ello" {
		t.Fatalf("rune diff: delete=%d insert=%q", del, ins)
	}
	del, ins = Diff("héllo", "hello", UnitByte)
	if del != 5 || ins != "ello" {
		t.Fatalf("byte diff: delete=%d insert=%q", del, ins)
	}
}

func TestEngineProgressiveRefinement(t *testing.T) {
	f := output.NewFakeSurface()
	e := NewEngine(f, logging.NewTestLogger(), UnitRune, " ")

	e.Apply("hel", false)
	e.Apply("hello wor", false)
	e.Apply("hello world", false)
	if got := f.Text(); got != "hello world" {
		t.Fatalf("surface holds %q", got)
	}
	ops := f.Ops()
	if len(ops) != 3 {
		t.Fatalf("expected 3 edits, got %+v", ops)
	}
	// Every edit must be a pure suffix operation against the prior text.
	if ops[1].Delete != 0 || ops[1].Insert != "lo wor" {
		t.Fatalf("second edit: %+v", ops[1])
	}
}

func TestEngineRepeatedTextIsNoOp(t *testing.T) {
	f := output.NewFakeSurface()
	e := NewEngine(f, logging.NewTestLogger(), UnitRune, " ")

	e.Apply("hello", false)
	e.Apply("hello", false)
	e.Apply("hello", false)
	if ops := f.Ops(); len(ops) != 1 {
		t.Fatalf("repeated text produced edits: %+v", ops)
	}
}

func TestEngineCorrectionDeletesTail(t *testing.T) {
	f := output.NewFakeSurface()
	e := NewEngine(f, logging.NewTestLogger(), UnitRune, " ")

	e.Apply("hello word", false)
	e.Apply("hello world", false)
	ops := f.Ops()
	if ops[1].Delete != 1 || ops[1].Insert != "ld" {
		t.Fatalf("correction edit: %+v", ops[1])
	}
	if got := f.Text(); got != "hello world" {
		t.Fatalf("surface holds %q", got)
	}
}

func TestEngineFinalAppendsSeparatorAndResets(t *testing.T) {
	f := output.NewFakeSurface()
	e := NewEngine(f, logging.NewTestLogger(), UnitRune, " ")

	e.Apply("hello", false)
	e.Apply("hello world", true)
	if got := f.Text(); got != "hello world " {
		t.Fatalf("surface holds %q", got)
	}
	if e.LastApplied() != "" {
		t.Fatalf("baseline not reset: %q", e.LastApplied())
	}
	if e.Utterance() != 1 {
		t.Fatalf("utterance = %d", e.Utterance())
	}

	// Next utterance diffs from empty: no deletes into the previous one.
	e.Apply("again", true)
	ops := f.Ops()
	last := ops[len(ops)-2] // final edit before its separator
	if last.Delete != 0 || last.Insert != "again" {
		t.Fatalf("next utterance edit: %+v", last)
	}
	if got := f.Text(); got != "hello world again " {
		t.Fatalf("surface holds %q", got)
	}
}

func TestEngineEmptyFinalNoSeparator(t *testing.T) {
	f := output.NewFakeSurface()
	e := NewEngine(f, logging.NewTestLogger(), UnitRune, " ")

	e.Apply("hel", false)
	e.Apply("", true)
	if got := f.Text(); got != "" {
		t.Fatalf("retraction left %q", got)
	}
	ops := f.Ops()
	if last := ops[len(ops)-1]; last.Delete != 3 || last.Insert != "" {
		t.Fatalf("retraction edit: %+v", last)
	}
	if e.Utterance() != 1 {
		t.Fatalf("utterance = %d", e.Utterance())
	}
}

func TestEngineFocusLossDropsEditAndResets(t *testing.T) {
	f := output.NewFakeSurface()
	e := NewEngine(f, logging.NewTestLogger(), UnitRune, " ")

	e.Apply("hello", false)
	f.SetFocused(false)
	e.Apply("hello world", false)
	if got := f.Text(); got != "hello" {
		t.Fatalf("edit applied while unfocused: %q", got)
	}
	if e.EditsSkipped() != 1 {
		t.Fatalf("skipped = %d", e.EditsSkipped())
	}

	// Focus returns. The baseline is empty, so the next hypothesis is
	// inserted whole rather than diffed against stale text.
	f.SetFocused(true)
	e.Apply("hello world", false)
	ops := f.Ops()
	if last := ops[len(ops)-1]; last.Delete != 0 || last.Insert != "hello world" {
		t.Fatalf("post-focus edit: %+v", last)
	}
}

func TestEngineSurfaceErrorOnPartialKeepsState(t *testing.T) {
	f := output.NewFakeSurface()
	e := NewEngine(f, logging.NewTestLogger(), UnitRune, " ")

	e.Apply("hello", false)
	f.FailNext(errors.New("injection refused"))
	e.Apply("hello world", false)
	if e.LastApplied() != "hello" {
		t.Fatalf("baseline advanced past failed edit: %q", e.LastApplied())
	}

	// The retry diffs against the text actually on the surface.
	e.Apply("hello world", false)
	if got := f.Text(); got != "hello world" {
		t.Fatalf("surface holds %q", got)
	}
}

func TestEngineSurfaceErrorOnFinalStillResets(t *testing.T) {
	f := output.NewFakeSurface()
	e := NewEngine(f, logging.NewTestLogger(), UnitRune, " ")

	e.Apply("hello", false)
	f.FailNext(errors.New("injection refused"))
	e.Apply("hello world", true)
	if e.LastApplied() != "" {
		t.Fatalf("baseline not reset after final: %q", e.LastApplied())
	}
	if e.Utterance() != 1 {
		t.Fatalf("utterance = %d", e.Utterance())
	}
}
