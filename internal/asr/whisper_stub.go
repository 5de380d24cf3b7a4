//go:build !whisper

package asr

import (
	"fmt"

	"murmur/internal/config"

	"github.com/sirupsen/logrus"
)

func newWhisperRecognizer(cfg *config.Config, logger *logrus.Logger) (Recognizer, error) {
	return nil, fmt.Errorf("built without whisper support; rebuild with -tags whisper or set asr.backend = \"stream\"")
}
