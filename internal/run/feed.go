package run

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"
)

// Event is one entry on the status feed. Types: speech_start, text,
// speech_end.
type Event struct {
	Type      string    `json:"type"`
	Text      string    `json:"text,omitempty"`
	Final     bool      `json:"final,omitempty"`
	Utterance uint64    `json:"utterance"`
	Timestamp time.Time `json:"ts"`
}

// Feed fans utterance events out to websocket subscribers. Overlays and
// status bars connect here instead of polling the control socket. Slow
// subscribers lose events rather than stalling the pipeline.
type Feed struct {
	logger *logrus.Logger

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewFeed(logger *logrus.Logger) *Feed {
	return &Feed{logger: logger, subs: make(map[chan Event]struct{})}
}

// Broadcast delivers ev to every subscriber without blocking.
func (f *Feed) Broadcast(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (f *Feed) subscribe() chan Event {
	ch := make(chan Event, 32)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

func (f *Feed) unsubscribe(ch chan Event) {
	f.mu.Lock()
	delete(f.subs, ch)
	f.mu.Unlock()
}

func (f *Feed) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Serve runs the feed websocket endpoint at /feed until done closes.
func (f *Feed) Serve(done <-chan struct{}, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed", f.handleFeed)
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-done
		_ = server.Close()
	}()
	f.logger.Infof("feed listening on ws://%s/feed", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		f.logger.Warnf("feed server: %v", err)
	}
}

func (f *Feed) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		f.logger.Debugf("feed accept: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch := f.subscribe()
	defer f.unsubscribe(ch)

	// Subscribers never send, so hand the read side to the library; the
	// returned context is cancelled as soon as the client goes away, which
	// also keeps close and ping frames processed during silence.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
