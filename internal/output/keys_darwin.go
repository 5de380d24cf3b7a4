//go:build darwin

package output

import (
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

var (
	kb     keybd_event.KeyBonding
	kbOnce sync.Once
	kbErr  error
)

func initKeys() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
	})
	return kbErr
}

// macOS virtual keycodes (Carbon kVK_*).
const (
	keyBackspace = 51 // kVK_Delete
	keyV         = 9  // kVK_ANSI_V
)

func backspaceTap() error {
	if err := initKeys(); err != nil {
		return err
	}
	kb.SetKeys(keyBackspace)
	kb.HasSuper(false)
	return kb.Launching()
}

// Per-character virtual keycode typing is layout-dependent on macOS, so
// insertion always goes through the clipboard paste chord there.
func typeText(text string, delay time.Duration) error {
	if err := initKeys(); err != nil {
		return err
	}
	if err := clipboard.WriteAll(text); err != nil {
		return err
	}
	return pasteChord()
}

func pasteChord() error {
	if err := initKeys(); err != nil {
		return err
	}
	kb.SetKeys(keyV)
	kb.HasSuper(true) // Cmd+V
	err := kb.Launching()
	kb.HasSuper(false)
	return err
}
