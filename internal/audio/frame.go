package audio

import "time"

// Frame is one fixed-duration chunk of canonical audio: mono float32
// samples at the pipeline sample rate. The sample slice is owned by the
// frame; capture buffers are copied on enqueue because the hardware may
// reuse them immediately.
type Frame struct {
	Samples  []float32
	Captured time.Time
}

// Duration returns the frame length at the given sample rate.
func (f Frame) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(sampleRate)
}
