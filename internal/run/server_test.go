package run

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"murmur/internal/config"
	"murmur/internal/control"
	"murmur/internal/hook"
	"murmur/internal/logging"
	"murmur/internal/textsync"
)

func newTestServer(t *testing.T) (*Server, context.CancelFunc) {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Paths.SocketPath = filepath.Join(t.TempDir(), "murmur.sock")
	cfg.Transcripts.Enabled = false

	logger := logging.NewTestLogger()
	hookRunner, err := hook.NewRunner(cfg, logger)
	if err != nil {
		t.Fatalf("hook runner: %v", err)
	}
	srv := &Server{
		cfg:       cfg,
		logger:    logger,
		hook:      hookRunner,
		feed:      NewFeed(logger),
		startedAt: time.Now(),
		hookCh:    make(chan hook.Job, 16),
	}
	p, _, _, _ := newTestPipeline(textsync.Events{})
	srv.pipeline = p

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = p.Run(ctx) }()
	go srv.controlLoop(ctx)

	// Wait for the socket to appear.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("unix", cfg.Paths.SocketPath); err == nil {
			_ = conn.Close()
			return srv, cancel
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	t.Fatalf("control socket never came up")
	return nil, nil
}

func roundTrip(t *testing.T, socketPath, op string, resp any) {
	t.Helper()
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := json.NewEncoder(conn).Encode(control.Request{Op: op}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := json.NewDecoder(conn).Decode(resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestControlSocketStatusAndHealth(t *testing.T) {
	srv, cancel := newTestServer(t)
	defer cancel()

	var health control.SimpleResponse
	roundTrip(t, srv.cfg.Paths.SocketPath, "health", &health)
	if !health.OK {
		t.Fatalf("health not ok: %+v", health)
	}

	var status control.Status
	roundTrip(t, srv.cfg.Paths.SocketPath, "status", &status)
	if !status.Running || status.Paused {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.Backend != srv.cfg.ASR.Backend {
		t.Fatalf("backend = %q", status.Backend)
	}
}

func TestControlSocketPauseResume(t *testing.T) {
	srv, cancel := newTestServer(t)
	defer cancel()

	var resp control.SimpleResponse
	roundTrip(t, srv.cfg.Paths.SocketPath, "pause", &resp)
	if !resp.OK || !srv.pipeline.Paused() {
		t.Fatalf("pause failed: %+v", resp)
	}

	var status control.Status
	roundTrip(t, srv.cfg.Paths.SocketPath, "status", &status)
	if !status.Paused {
		t.Fatalf("status does not show paused")
	}

	roundTrip(t, srv.cfg.Paths.SocketPath, "resume", &resp)
	if !resp.OK || srv.pipeline.Paused() {
		t.Fatalf("resume failed: %+v", resp)
	}
}

func TestControlSocketUnknownOp(t *testing.T) {
	srv, cancel := newTestServer(t)
	defer cancel()

	var resp control.SimpleResponse
	roundTrip(t, srv.cfg.Paths.SocketPath, "explode", &resp)
	if resp.OK {
		t.Fatalf("unknown op accepted: %+v", resp)
	}
}

func TestRecordTranscriptKeepsTail(t *testing.T) {
	srv, cancel := newTestServer(t)
	defer cancel()
	srv.cfg.Transcripts.Enabled = true
	srv.cfg.Paths.TranscriptPath = filepath.Join(t.TempDir(), "transcripts.log")
	srv.cfg.UI.StatusTail = 2

	srv.recordTranscript("one", 1)
	srv.recordTranscript("two", 2)
	srv.recordTranscript("three", 3)

	tail := srv.copyTranscripts()
	if len(tail) != 2 || tail[0].Text != "two" || tail[1].Text != "three" {
		t.Fatalf("tail: %+v", tail)
	}
}
