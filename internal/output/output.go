// Package output injects transcript corrections into whatever external
// text field currently holds focus. The core talks to it through the
// two-method Surface contract; everything platform-specific stays behind
// it.
package output

import (
	"fmt"

	"murmur/internal/config"

	"github.com/sirupsen/logrus"
)

// Surface is the external text field adapter. ApplyEdit deletes
// deleteCount units from the caret position and then inserts text there;
// interior edits are never expressed because synthetic input cannot seek
// into arbitrary fields.
type Surface interface {
	IsFocused() bool
	ApplyEdit(deleteCount int, insert string) error
}

// Edit records one applied operation; used by the fake surface and logs.
type Edit struct {
	Delete int
	Insert string
}

// New builds the platform keyboard surface from config.
func New(cfg *config.Config, logger *logrus.Logger) (Surface, error) {
	probe, err := NewFocusProbe(cfg.Output.FocusCommand, cfg.Output.FocusTTLMS, logger)
	if err != nil {
		return nil, fmt.Errorf("focus probe: %w", err)
	}
	return newKeyboard(cfg, logger, probe)
}
