package output

import (
	"fmt"
	"time"

	"murmur/internal/config"

	"github.com/atotto/clipboard"
	"github.com/sirupsen/logrus"
)

// Keyboard applies edits by synthesizing input events: backspace taps for
// deletion, then either per-character typing or a clipboard paste chord
// for insertion. Platform specifics live in the keys_* files.
type Keyboard struct {
	cfg    *config.Config
	logger *logrus.Logger
	probe  *FocusProbe
}

func newKeyboard(cfg *config.Config, logger *logrus.Logger, probe *FocusProbe) (*Keyboard, error) {
	if err := initKeys(); err != nil {
		return nil, fmt.Errorf("keyboard init: %w", err)
	}
	return &Keyboard{cfg: cfg, logger: logger, probe: probe}, nil
}

func (k *Keyboard) IsFocused() bool {
	return k.probe.Focused()
}

// ApplyEdit deletes deleteCount characters from the caret, then inserts
// text. The delete unit is one backspace per character, which is why the
// sync layer diffs in runes by default.
func (k *Keyboard) ApplyEdit(deleteCount int, insert string) error {
	delay := time.Duration(k.cfg.Output.KeyDelayMS) * time.Millisecond
	for i := 0; i < deleteCount; i++ {
		if err := backspaceTap(); err != nil {
			return fmt.Errorf("backspace: %w", err)
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	if insert == "" {
		return nil
	}
	if k.shouldPaste(insert) {
		return k.pasteInsert(insert)
	}
	if err := typeText(insert, delay); err != nil {
		return fmt.Errorf("type: %w", err)
	}
	return nil
}

func (k *Keyboard) shouldPaste(insert string) bool {
	if k.cfg.Output.Mode == "paste" {
		return true
	}
	return k.cfg.Output.PasteThreshold > 0 && len(insert) >= k.cfg.Output.PasteThreshold
}

func (k *Keyboard) pasteInsert(insert string) error {
	if err := clipboard.WriteAll(insert); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	if err := pasteChord(); err != nil {
		return fmt.Errorf("paste chord: %w", err)
	}
	return nil
}
