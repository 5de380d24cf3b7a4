package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"murmur/internal/config"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// maxRecordSamples bounds the per-utterance buffer (2 minutes at the
// canonical rate). Anything longer is truncated from the front.
const maxRecordSamples = 120 * config.CanonicalSampleRate

// Recorder accumulates the frames of the current utterance and writes them
// out as a WAV file when the utterance commits. Used for debugging
// recognition quality; disabled by default.
type Recorder struct {
	dir string

	mu      sync.Mutex
	samples []float32
	started time.Time
}

// NewRecorder creates the target directory if needed.
func NewRecorder(dir string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("record dir: %w", err)
	}
	return &Recorder{dir: dir}, nil
}

// Append buffers a frame. Called from the queue consumer.
func (r *Recorder) Append(f Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.samples) == 0 {
		r.started = f.Captured
	}
	r.samples = append(r.samples, f.Samples...)
	if len(r.samples) > maxRecordSamples {
		r.samples = r.samples[len(r.samples)-maxRecordSamples:]
	}
}

// Discard drops the buffered audio without writing it.
func (r *Recorder) Discard() {
	r.mu.Lock()
	r.samples = nil
	r.mu.Unlock()
}

// Commit writes the buffered utterance to a timestamped WAV file and
// resets the buffer. Returns the written path.
func (r *Recorder) Commit() (string, error) {
	r.mu.Lock()
	samples := r.samples
	started := r.started
	r.samples = nil
	r.mu.Unlock()

	if len(samples) == 0 {
		return "", nil
	}
	if started.IsZero() {
		started = time.Now()
	}

	path := filepath.Join(r.dir, started.Format("20060102-150405.000")+".wav")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	enc := wav.NewEncoder(f, config.CanonicalSampleRate, 16, 1, 1)
	pcm := FloatToPCM16(samples)
	ints := make([]int, len(pcm))
	for i, s := range pcm {
		ints[i] = int(s)
	}
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: config.CanonicalSampleRate},
		SourceBitDepth: 16,
		Data:           ints,
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return "", err
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
