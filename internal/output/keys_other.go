//go:build !linux && !darwin

package output

import (
	"fmt"
	"time"
)

func initKeys() error {
	return fmt.Errorf("keyboard output not supported on this platform")
}

func backspaceTap() error {
	return initKeys()
}

func typeText(text string, delay time.Duration) error {
	return initKeys()
}

func pasteChord() error {
	return initKeys()
}
