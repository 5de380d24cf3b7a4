package audio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"murmur/internal/config"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"
)

const (
	maxCaptureRetries = 5
	retryBackoff      = 2 * time.Second
	// After this much healthy capture the retry budget resets, so a
	// device hot-swap days later gets a fresh set of attempts.
	retryResetAfter = 30 * time.Second
)

// ErrCaptureFailed reports that capture could not be (re)established
// within the retry budget.
var ErrCaptureFailed = errors.New("audio capture failed")

// Source captures hardware audio and enqueues canonical mono frames.
// All conversion (downmix, resample, chunking) happens here so the rest of
// the pipeline only ever sees the canonical format.
type Source struct {
	cfg    *config.Config
	logger *logrus.Logger
	queue  *Queue
}

// NewSource returns a Source feeding q.
func NewSource(cfg *config.Config, logger *logrus.Logger, q *Queue) *Source {
	return &Source{cfg: cfg, logger: logger, queue: q}
}

// Run captures until ctx is done. Device failures are retried with backoff
// a bounded number of times; after that the error is surfaced to the
// caller rather than retried silently forever.
func (s *Source) Run(ctx context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	retries := 0
	for {
		started := time.Now()
		err := s.captureOnce(ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			return ctx.Err()
		}
		if time.Since(started) >= retryResetAfter {
			retries = 0
		}
		retries++
		if retries > maxCaptureRetries {
			return fmt.Errorf("%w after %d attempts: %v", ErrCaptureFailed, retries-1, err)
		}
		s.logger.Warnf("capture error (attempt %d/%d): %v", retries, maxCaptureRetries, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff):
		}
	}
}

// captureOnce opens the configured device and reads frames until ctx is
// done or the stream errors (e.g. device unplugged).
func (s *Source) captureOnce(ctx context.Context) error {
	dev, err := selectDevice(s.cfg.Audio.DeviceName, s.cfg.Audio.DeviceIndex)
	if err != nil {
		return err
	}

	channels := s.cfg.Audio.Channels
	if channels > dev.MaxInputChannels {
		channels = dev.MaxInputChannels
	}
	deviceRate := s.cfg.Audio.SampleRate
	frameSamples := deviceRate * s.cfg.Audio.FrameMS / 1000

	buf := make([]float32, frameSamples*channels)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(deviceRate),
		FramesPerBuffer: frameSamples,
	}, &buf)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	defer stream.Stop()

	s.logger.Infof("listening on mic: %s @ %d Hz (%dms frames)", dev.Name, deviceRate, s.cfg.Audio.FrameMS)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				s.logger.Warn("input overflow")
				continue
			}
			return fmt.Errorf("stream read: %w", err)
		}
		samples := Downmix(buf, channels)
		if deviceRate != config.CanonicalSampleRate {
			samples = ResampleLinear(samples, deviceRate, config.CanonicalSampleRate)
		}
		// Enqueue copies, so buf can be reused on the next Read.
		s.queue.Enqueue(samples, time.Now())
	}
}
