//go:build whisper

package asr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"murmur/internal/audio"
	"murmur/internal/config"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	vad "github.com/maxhawkins/go-webrtcvad"
	"github.com/sirupsen/logrus"
)

// whisperRecognizer runs local VAD-gated incremental decoding: while speech
// is active the accumulated utterance audio is re-decoded periodically to
// produce revised partials; after enough silence the utterance is decoded
// one last time and emitted as final.
type whisperRecognizer struct {
	cfg    *config.Config
	logger *logrus.Logger
	model  whisper.Model
	vad    *vad.VAD

	// owned by the Feed goroutine
	inSpeech    bool
	buf         []float32
	lastVoice   time.Time
	speechBegan time.Time
	lastPartial time.Time

	jobs       chan decodeJob
	out        chan Hypothesis
	workerDone chan struct{}
	closed     bool

	utterance uint64
}

type decodeJob struct {
	samples []float32
	final   bool
}

func newWhisperRecognizer(cfg *config.Config, logger *logrus.Logger) (Recognizer, error) {
	if cfg.Audio.FrameMS != 10 && cfg.Audio.FrameMS != 20 && cfg.Audio.FrameMS != 30 {
		return nil, fmt.Errorf("audio.frame_ms must be 10, 20, or 30 for webrtc VAD (got %d)", cfg.Audio.FrameMS)
	}
	model, err := whisper.New(cfg.ASR.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	v, err := vad.New()
	if err != nil {
		model.Close()
		return nil, fmt.Errorf("vad init: %w", err)
	}
	if err := v.SetMode(cfg.ASR.Aggressiveness); err != nil {
		model.Close()
		return nil, fmt.Errorf("vad mode: %w", err)
	}
	r := &whisperRecognizer{
		cfg:        cfg,
		logger:     logger,
		model:      model,
		vad:        v,
		jobs:       make(chan decodeJob, 4),
		out:        make(chan Hypothesis, 8),
		workerDone: make(chan struct{}),
	}
	go r.decodeWorker()
	return r, nil
}

func (r *whisperRecognizer) Hypotheses() <-chan Hypothesis {
	return r.out
}

func (r *whisperRecognizer) Feed(ctx context.Context, frame audio.Frame) error {
	pcm := audio.PCM16Bytes(frame.Samples)
	voice, err := r.vad.Process(config.CanonicalSampleRate, pcm)
	if err != nil {
		return fmt.Errorf("vad: %w", err)
	}
	now := time.Now()

	if voice {
		if !r.inSpeech {
			r.inSpeech = true
			r.speechBegan = now
			r.lastPartial = now
			r.buf = r.buf[:0]
		}
		r.buf = append(r.buf, frame.Samples...)
		r.lastVoice = now

		if now.Sub(r.lastPartial) >= time.Duration(r.cfg.ASR.PartialMS)*time.Millisecond {
			r.lastPartial = now
			r.submit(decodeJob{samples: snapshot(r.buf)}, false)
		}
		if r.cfg.ASR.MaxSegmentMS > 0 && now.Sub(r.speechBegan) >= time.Duration(r.cfg.ASR.MaxSegmentMS)*time.Millisecond {
			r.finalize()
		}
		return nil
	}

	if r.inSpeech {
		// Keep a little trailing silence so words are not clipped.
		r.buf = append(r.buf, frame.Samples...)
		if now.Sub(r.lastVoice) >= time.Duration(r.cfg.ASR.SilenceMS)*time.Millisecond {
			r.finalize()
		}
	}
	return nil
}

func (r *whisperRecognizer) finalize() {
	job := decodeJob{samples: snapshot(r.buf), final: true}
	r.inSpeech = false
	r.buf = r.buf[:0]
	r.submit(job, true)
}

// submit enqueues a decode job. Partials are best-effort: if the worker is
// behind, the revision is skipped and a fresher one will follow. Finals
// must never be lost.
func (r *whisperRecognizer) submit(job decodeJob, mustDeliver bool) {
	if mustDeliver {
		r.jobs <- job
		return
	}
	select {
	case r.jobs <- job:
	default:
		r.logger.Debug("decode busy, skipping partial")
	}
}

func (r *whisperRecognizer) decodeWorker() {
	defer close(r.workerDone)
	defer close(r.out)
	for job := range r.jobs {
		text, err := r.decode(job.samples)
		if err != nil {
			r.logger.Errorf("decode: %v", err)
			if !job.final {
				continue
			}
			text = ""
		}
		text = strings.TrimSpace(text)
		if text == "" && !job.final {
			continue
		}
		r.out <- Hypothesis{Text: text, Final: job.final, Utterance: r.utterance}
		if job.final {
			r.utterance++
		}
	}
}

func (r *whisperRecognizer) decode(samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}
	params := whisper.NewParams(whisper.SAMPLING_GREEDY)
	params.SetNThreads(runtime.NumCPU())
	params.SetAudioCtx(0)

	wctx, err := r.model.NewContext(params)
	if err != nil {
		return "", err
	}
	if lang := strings.TrimSpace(r.cfg.ASR.Language); lang != "" && lang != "auto" {
		if err := wctx.SetLanguage(lang); err != nil {
			r.logger.Warnf("set language: %v", err)
		}
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", err
	}
	var b strings.Builder
	for {
		seg, err := wctx.NextSegment()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}
		b.WriteString(seg.Text)
		if !strings.HasSuffix(seg.Text, " ") {
			b.WriteRune(' ')
		}
	}
	return b.String(), nil
}

func (r *whisperRecognizer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.inSpeech {
		r.finalize()
	}
	close(r.jobs)
	<-r.workerDone
	r.model.Close()
	return nil
}

func snapshot(buf []float32) []float32 {
	cpy := make([]float32, len(buf))
	copy(cpy, buf)
	return cpy
}
