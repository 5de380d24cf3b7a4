package asr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"murmur/internal/audio"
	"murmur/internal/config"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

const (
	streamSendBuffer  = 128
	streamDrainWindow = 2 * time.Second
)

// streamResponse matches the Deepgram-style live transcription events most
// hosted STT endpoints emit.
type streamResponse struct {
	Type         string `json:"type"`
	IsFinal      bool   `json:"is_final"`
	SpeechFinal  bool   `json:"speech_final"`
	FromFinalize bool   `json:"from_finalize"`
	Channel      struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// streamRecognizer proxies frames to a hosted streaming STT endpoint over a
// websocket and converts its interim/final events into hypotheses. The
// endpoint does its own silence debounce; speech_final is the EOU signal.
type streamRecognizer struct {
	cfg    *config.Config
	logger *logrus.Logger

	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc

	sendCh   chan []byte
	out      chan Hypothesis
	sendDone chan struct{}
	recvDone chan struct{}

	mu        sync.Mutex
	committed string
	utterance uint64
	closed    bool
}

func newStreamRecognizer(cfg *config.Config, logger *logrus.Logger) (Recognizer, error) {
	endpoint, err := url.Parse(cfg.ASR.StreamURL)
	if err != nil {
		return nil, fmt.Errorf("asr.stream_url: %w", err)
	}
	q := endpoint.Query()
	q.Set("encoding", "linear16")
	q.Set("sample_rate", fmt.Sprintf("%d", config.CanonicalSampleRate))
	q.Set("channels", "1")
	q.Set("interim_results", "true")
	if cfg.ASR.Language != "" && cfg.ASR.Language != "auto" {
		q.Set("language", cfg.ASR.Language)
	}
	endpoint.RawQuery = q.Encode()

	headers := http.Header{}
	if cfg.ASR.StreamKey != "" {
		headers.Set("Authorization", "Token "+cfg.ASR.StreamKey)
	}

	ctx, cancel := context.WithCancel(context.Background())
	conn, _, err := websocket.Dial(ctx, endpoint.String(), &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("dial stream endpoint: %w", err)
	}

	r := &streamRecognizer{
		cfg:      cfg,
		logger:   logger,
		conn:     conn,
		ctx:      ctx,
		cancel:   cancel,
		sendCh:   make(chan []byte, streamSendBuffer),
		out:      make(chan Hypothesis, 8),
		sendDone: make(chan struct{}),
		recvDone: make(chan struct{}),
	}
	go r.runSender()
	go r.runReceiver()
	return r, nil
}

func (r *streamRecognizer) Hypotheses() <-chan Hypothesis {
	return r.out
}

// Feed converts the frame to PCM16 and hands it to the sender. When the
// network cannot keep up the frame is dropped rather than stalling the
// queue consumer.
func (r *streamRecognizer) Feed(ctx context.Context, frame audio.Frame) error {
	pcm := audio.PCM16Bytes(frame.Samples)
	select {
	case r.sendCh <- pcm:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		r.logger.Debug("stream send backlog, dropping frame")
		return nil
	}
}

func (r *streamRecognizer) runSender() {
	defer close(r.sendDone)
	for chunk := range r.sendCh {
		if err := r.conn.Write(r.ctx, websocket.MessageBinary, chunk); err != nil {
			if r.ctx.Err() == nil {
				r.logger.Errorf("stream send: %v", err)
			}
			return
		}
	}
	// Ask the endpoint to flush whatever it is still holding.
	if err := r.conn.Write(r.ctx, websocket.MessageText, []byte(`{"type":"Finalize"}`)); err != nil && r.ctx.Err() == nil {
		r.logger.Warnf("stream finalize: %v", err)
	}
}

func (r *streamRecognizer) runReceiver() {
	defer close(r.recvDone)
	for {
		_, data, err := r.conn.Read(r.ctx)
		if err != nil {
			if r.ctx.Err() == nil {
				r.logger.Warnf("stream recv: %v", err)
			}
			return
		}
		var resp streamResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			r.logger.Debugf("stream: unparseable event: %v", err)
			continue
		}
		transcript := ""
		if len(resp.Channel.Alternatives) > 0 {
			transcript = strings.TrimSpace(resp.Channel.Alternatives[0].Transcript)
		}
		r.handleEvent(transcript, resp.IsFinal, resp.SpeechFinal || resp.FromFinalize)
	}
}

// handleEvent folds segment-level events into utterance-level hypotheses:
// interim events revise the tail, is_final commits a segment, speech_final
// ends the utterance.
func (r *streamRecognizer) handleEvent(transcript string, segmentFinal, utteranceFinal bool) {
	r.mu.Lock()
	var h Hypothesis
	emit := false
	switch {
	case utteranceFinal:
		h = Hypothesis{Text: joinSegments(r.committed, transcript), Final: true, Utterance: r.utterance}
		r.committed = ""
		r.utterance++
		emit = true
	case segmentFinal:
		r.committed = joinSegments(r.committed, transcript)
		h = Hypothesis{Text: r.committed, Utterance: r.utterance}
		emit = h.Text != ""
	default:
		h = Hypothesis{Text: joinSegments(r.committed, transcript), Utterance: r.utterance}
		emit = h.Text != ""
	}
	r.mu.Unlock()

	if emit {
		r.emit(h)
	}
}

func (r *streamRecognizer) emit(h Hypothesis) {
	select {
	case r.out <- h:
	case <-r.ctx.Done():
	}
}

func (r *streamRecognizer) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.sendCh)
	<-r.sendDone

	// Give the endpoint a moment to deliver the finalize result.
	select {
	case <-r.recvDone:
	case <-time.After(streamDrainWindow):
		r.logger.Warn("stream receiver drain timeout")
	}

	r.cancel()
	_ = r.conn.Close(websocket.StatusNormalClosure, "")
	<-r.recvDone

	// Flush any committed text the endpoint never finalized.
	r.mu.Lock()
	if r.committed != "" {
		h := Hypothesis{Text: r.committed, Final: true, Utterance: r.utterance}
		r.committed = ""
		r.utterance++
		select {
		case r.out <- h:
		default:
		}
	}
	r.mu.Unlock()
	close(r.out)
	return nil
}

func joinSegments(committed, tail string) string {
	switch {
	case committed == "":
		return tail
	case tail == "":
		return committed
	default:
		return committed + " " + tail
	}
}
