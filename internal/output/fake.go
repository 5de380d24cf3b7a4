package output

import (
	"sync"
)

// FakeSurface is an in-memory Surface for tests: edits are replayed onto a
// string buffer exactly the way a caret-only field would apply them, and
// every operation is recorded for assertions.
type FakeSurface struct {
	mu       sync.Mutex
	buf      []rune
	focused  bool
	failNext error
	ops      []Edit
}

// NewFakeSurface starts focused with an empty buffer.
func NewFakeSurface() *FakeSurface {
	return &FakeSurface{focused: true}
}

func (f *FakeSurface) IsFocused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.focused
}

// SetFocused scripts focus gain/loss.
func (f *FakeSurface) SetFocused(v bool) {
	f.mu.Lock()
	f.focused = v
	f.mu.Unlock()
}

// FailNext makes the next ApplyEdit return err without applying.
func (f *FakeSurface) FailNext(err error) {
	f.mu.Lock()
	f.failNext = err
	f.mu.Unlock()
}

func (f *FakeSurface) ApplyEdit(deleteCount int, insert string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	if deleteCount > len(f.buf) {
		deleteCount = len(f.buf)
	}
	f.buf = f.buf[:len(f.buf)-deleteCount]
	f.buf = append(f.buf, []rune(insert)...)
	f.ops = append(f.ops, Edit{Delete: deleteCount, Insert: insert})
	return nil
}

// Text returns the current buffer contents.
func (f *FakeSurface) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.buf)
}

// Ops returns a copy of all recorded edits.
func (f *FakeSurface) Ops() []Edit {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Edit, len(f.ops))
	copy(out, f.ops)
	return out
}

// Reset clears the buffer and the recorded operations.
func (f *FakeSurface) Reset() {
	f.mu.Lock()
	f.buf = nil
	f.ops = nil
	f.mu.Unlock()
}
