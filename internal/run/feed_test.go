package run

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"murmur/internal/logging"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func TestFeedDeliversEvents(t *testing.T) {
	f := NewFeed(logging.NewTestLogger())
	srv := httptest.NewServer(http.HandlerFunc(f.handleFeed))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	waitFor(t, func() bool { return f.subscribers() == 1 }, "subscription")
	f.Broadcast(Event{Type: "speech_start", Utterance: 1, Timestamp: time.Now()})

	var ev Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != "speech_start" || ev.Utterance != 1 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestFeedDropsSubscriberOnDisconnect(t *testing.T) {
	f := NewFeed(logging.NewTestLogger())
	srv := httptest.NewServer(http.HandlerFunc(f.handleFeed))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, func() bool { return f.subscribers() == 1 }, "subscription")

	// Disconnect without any broadcast in flight; the handler must notice
	// from its read side, not from a failed write.
	if err := conn.Close(websocket.StatusNormalClosure, ""); err != nil {
		t.Fatalf("close: %v", err)
	}
	waitFor(t, func() bool { return f.subscribers() == 0 }, "unsubscribe on disconnect")
}

func TestFeedSlowSubscriberDoesNotBlockBroadcast(t *testing.T) {
	f := NewFeed(logging.NewTestLogger())
	ch := f.subscribe()
	defer f.unsubscribe(ch)

	// Fill the subscriber buffer and keep broadcasting; Broadcast must
	// drop rather than stall.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < cap(ch)+16; i++ {
			f.Broadcast(Event{Type: "text", Utterance: 1, Timestamp: time.Now()})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("broadcast blocked on a slow subscriber")
	}
}
