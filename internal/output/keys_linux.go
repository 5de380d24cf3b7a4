//go:build linux

package output

import (
	"sync"
	"time"

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

// Linux input event codes.
// a=30, b=48, c=46, d=32, e=18, f=33, g=34, h=35, i=23, j=36,
// k=37, l=38, m=50, n=49, o=24, p=25, q=16, r=19, s=31, t=20,
// u=22, v=47, w=17, x=45, y=21, z=44
var keymap = [26]int{
	30, 48, 46, 32, 18, 33, 34, 35, 23, 36,
	37, 38, 50, 49, 24, 25, 16, 19, 31, 20,
	22, 47, 17, 45, 21, 44,
}

// 0=11, 1=2, 2=3, ..., 9=10
var nummap = [10]int{11, 2, 3, 4, 5, 6, 7, 8, 9, 10}

const (
	keyBackspace = 14
	keyV         = 47
)

func charToKey(c rune) (code int, shift bool, ok bool) {
	switch {
	case c >= 'a' && c <= 'z':
		return keymap[c-'a'], false, true
	case c >= 'A' && c <= 'Z':
		return keymap[c-'A'], true, true
	case c >= '0' && c <= '9':
		return nummap[c-'0'], false, true
	case c == ' ':
		return 57, false, true // KEY_SPACE
	case c == '\n':
		return 28, false, true // KEY_ENTER
	case c == '\t':
		return 15, false, true // KEY_TAB
	default:
		return punctKey(c)
	}
}

func punctKey(c rune) (int, bool, bool) {
	type km struct {
		code  int
		shift bool
	}
	m := map[rune]km{
		'.': {52, false}, ',': {51, false}, '/': {53, false},
		';': {39, false}, '\'': {40, false}, '[': {26, false},
		']': {27, false}, '-': {12, false}, '=': {13, false},
		'\\': {43, false}, '`': {41, false},
		'!': {2, true}, '@': {3, true}, '#': {4, true},
		'$': {5, true}, '%': {6, true}, '^': {7, true},
		'&': {8, true}, '*': {9, true}, '(': {10, true},
		')': {11, true}, '_': {12, true}, '+': {13, true},
		'{': {26, true}, '}': {27, true}, '|': {43, true},
		':': {39, true}, '"': {40, true}, '<': {51, true},
		'>': {52, true}, '?': {53, true}, '~': {41, true},
	}
	if k, ok := m[c]; ok {
		return k.code, k.shift, true
	}
	return 0, false, false
}

func keyTap(code int, shift, ctrl bool) error {
	kb.SetKeys(code)
	kb.HasSHIFT(shift)
	kb.HasCTRL(ctrl)
	return kb.Launching()
}

func backspaceTap() error {
	if err := initKeys(); err != nil {
		return err
	}
	return keyTap(keyBackspace, false, false)
}

// typeText sends each character as a keystroke. Characters outside the
// US-layout map are skipped rather than typed wrong.
func typeText(text string, delay time.Duration) error {
	if err := initKeys(); err != nil {
		return err
	}
	for _, c := range text {
		code, shift, ok := charToKey(c)
		if !ok {
			continue
		}
		if err := keyTap(code, shift, false); err != nil {
			return err
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return nil
}

func pasteChord() error {
	if err := initKeys(); err != nil {
		return err
	}
	return keyTap(keyV, false, true) // Ctrl+V
}
