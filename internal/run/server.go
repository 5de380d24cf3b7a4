package run

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"murmur/internal/asr"
	"murmur/internal/audio"
	"murmur/internal/config"
	"murmur/internal/control"
	"murmur/internal/hook"
	"murmur/internal/output"
	"murmur/internal/textsync"

	"github.com/sirupsen/logrus"
)

// Server owns the daemon: audio capture, the sync pipeline, the control
// socket, and the optional metrics and feed endpoints.
type Server struct {
	cfg       *config.Config
	logger    *logrus.Logger
	pipeline  *Pipeline
	hook      *hook.Runner
	feed      *Feed
	startedAt time.Time

	transcriptsMu sync.Mutex
	transcripts   []control.Transcript

	metrics metrics
	hookCh  chan hook.Job
}

// Serve runs the daemon until interrupted.
func Serve(cfg *config.Config, logger *logrus.Logger) error {
	if err := config.MustStatePaths(cfg); err != nil {
		return err
	}
	if err := os.WriteFile(cfg.Paths.PidPath, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644); err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(cfg.Paths.PidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("remove pid file: %v", err)
		}
	}()
	if err := os.Remove(cfg.Paths.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Debugf("remove stale socket: %v", err)
	}

	queue := audio.NewQueue(cfg.Queue.MaxFrames)
	source := audio.NewSource(cfg, logger, queue)

	rec, err := asr.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("asr init: %w", err)
	}
	surface, err := output.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("output init: %w", err)
	}

	var recorder *audio.Recorder
	if cfg.Record.Enabled {
		recorder, err = audio.NewRecorder(cfg.Record.Dir)
		if err != nil {
			return fmt.Errorf("recorder init: %w", err)
		}
	}

	hookRunner, err := hook.NewRunner(cfg, logger)
	if err != nil {
		return err
	}

	srv := &Server{
		cfg:         cfg,
		logger:      logger,
		hook:        hookRunner,
		feed:        NewFeed(logger),
		startedAt:   time.Now(),
		transcripts: make([]control.Transcript, 0, cfg.UI.StatusTail),
		hookCh:      make(chan hook.Job, 16),
	}
	srv.metrics.reset()

	engine := textsync.NewEngine(surface, logger, textsync.ParseUnit(cfg.Sync.DiffUnit), cfg.Sync.Separator)
	vocab := textsync.NewVocabulary(cfg.Vocabulary.Entries)
	machine := textsync.NewMachine(engine, srv.events(recorder), logger, vocab, cfg.Sync.AnnounceSilence)
	srv.pipeline = NewPipeline(logger, queue, rec, machine, engine, recorder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := source.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("audio capture: %v", err)
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		if err := srv.pipeline.Run(ctx); err != nil {
			logger.Errorf("pipeline: %v", err)
		}
	}()

	go srv.controlLoop(ctx)
	go srv.hookWorker(ctx)
	go srv.watchdog(ctx.Done())
	if cfg.Metrics.Enabled {
		go srv.metricsServe(ctx.Done(), cfg.Metrics.Addr)
	}
	if cfg.Feed.Enabled {
		go srv.feed.Serve(ctx.Done(), cfg.Feed.Addr)
	}

	logger.Infof("murmur serving (backend %s, socket %s)", cfg.ASR.Backend, cfg.Paths.SocketPath)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	select {
	case s := <-sigCh:
		logger.Infof("received signal %s, shutting down", s)
		cancel()
	case <-ctx.Done():
	}
	wg.Wait()
	return nil
}

// events wires the utterance lifecycle into the feed, transcripts, hook
// queue, and recorder. All callbacks run on the pipeline's sync goroutine.
func (s *Server) events(recorder *audio.Recorder) textsync.Events {
	return textsync.Events{
		// The engine's utterance counter advances when a final lands, so
		// during an utterance the in-flight id is completed+1.
		OnSpeechStart: func() {
			s.feed.Broadcast(Event{
				Type:      "speech_start",
				Utterance: s.pipeline.Utterances() + 1,
				Timestamp: time.Now(),
			})
		},
		OnText: func(text string, final bool) {
			if final {
				s.metrics.incFinal()
			} else {
				s.metrics.incPartial()
			}
			s.feed.Broadcast(Event{
				Type:      "text",
				Text:      text,
				Final:     final,
				Utterance: s.pipeline.Utterances() + 1,
				Timestamp: time.Now(),
			})
		},
		OnSpeechEnd: func(finalText string) {
			utt := s.pipeline.Utterances()
			s.feed.Broadcast(Event{
				Type:      "speech_end",
				Text:      finalText,
				Final:     true,
				Utterance: utt,
				Timestamp: time.Now(),
			})
			if finalText != "" {
				s.logger.Infof("utterance %d: %q", utt, finalText)
				s.recordTranscript(finalText, utt)
				s.dispatchHook(finalText, utt)
			}
			if recorder != nil {
				if path, err := recorder.Commit(); err != nil {
					s.logger.Warnf("record utterance: %v", err)
				} else if path != "" {
					s.logger.Debugf("recorded utterance to %s", path)
				}
			}
		},
	}
}

func (s *Server) dispatchHook(text string, utterance uint64) {
	job := hook.Job{Text: text, Utterance: utterance, Timestamp: time.Now()}
	if !s.hook.ShouldRun(job) {
		if s.hook.Enabled() {
			s.logger.Debug("hook skipped (cooldown or min_chars)")
			s.metrics.incSkipped()
		}
		return
	}
	select {
	case s.hookCh <- job:
	default:
		s.metrics.incHookDropped()
		s.logger.Warn("hook queue full, dropping job")
	}
}

func (s *Server) recordTranscript(text string, utterance uint64) {
	if !s.cfg.Transcripts.Enabled {
		return
	}
	entry := control.Transcript{
		Text:      text,
		Utterance: utterance,
		Timestamp: time.Now(),
	}
	s.transcriptsMu.Lock()
	defer s.transcriptsMu.Unlock()
	s.transcripts = append(s.transcripts, entry)
	if len(s.transcripts) > s.cfg.UI.StatusTail {
		s.transcripts = s.transcripts[len(s.transcripts)-s.cfg.UI.StatusTail:]
	}
	f, err := os.OpenFile(s.cfg.Paths.TranscriptPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err == nil {
		if _, err := fmt.Fprintf(f, "%s\t%s\n", entry.Timestamp.Format(time.RFC3339), entry.Text); err != nil {
			s.logger.Warnf("write transcript: %v", err)
		}
		_ = f.Close()
	}
}

func (s *Server) copyTranscripts() []control.Transcript {
	s.transcriptsMu.Lock()
	defer s.transcriptsMu.Unlock()
	out := make([]control.Transcript, len(s.transcripts))
	copy(out, s.transcripts)
	return out
}

// watchdog logs pipeline pressure. A growing drop counter means capture
// is outrunning recognition and text is being lost at the queue.
func (s *Server) watchdog(done <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	var lastDropped uint64
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			dropped := s.pipeline.FramesDropped()
			if dropped > lastDropped {
				s.logger.Warnf("dropped %d audio frames in the last 30s (queue depth %d); recognizer falling behind",
					dropped-lastDropped, s.pipeline.QueueDepth())
			}
			lastDropped = dropped
		}
	}
}

func (s *Server) controlLoop(ctx context.Context) {
	ln, err := net.Listen("unix", s.cfg.Paths.SocketPath)
	if err != nil {
		s.logger.Errorf("control listen: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	defer func() {
		if err := os.Remove(s.cfg.Paths.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Debugf("remove socket: %v", err)
		}
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Errorf("control accept: %v", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() {
		if err := conn.Close(); err != nil && ctx.Err() == nil {
			s.logger.Warnf("control connection close: %v", err)
		}
	}()
	sc := bufio.NewScanner(conn)
	if !sc.Scan() {
		return
	}
	var req control.Request
	if err := json.Unmarshal(sc.Bytes(), &req); err != nil {
		return
	}
	switch req.Op {
	case "status":
		resp := control.Status{
			Running:       true,
			Paused:        s.pipeline.Paused(),
			UptimeSec:     time.Since(s.startedAt).Seconds(),
			Backend:       s.cfg.ASR.Backend,
			Utterances:    s.pipeline.Utterances(),
			FramesDropped: s.pipeline.FramesDropped(),
			EditsApplied:  s.pipeline.EditsApplied(),
			EditsSkipped:  s.pipeline.EditsSkipped(),
			QueueDepth:    s.pipeline.QueueDepth(),
			Transcripts:   s.copyTranscripts(),
		}
		_ = json.NewEncoder(conn).Encode(resp)
	case "health":
		_ = json.NewEncoder(conn).Encode(control.SimpleResponse{OK: true, Message: "ok"})
	case "pause":
		s.pipeline.Pause()
		_ = json.NewEncoder(conn).Encode(control.SimpleResponse{OK: true, Message: "paused"})
	case "resume":
		s.pipeline.Resume()
		_ = json.NewEncoder(conn).Encode(control.SimpleResponse{OK: true, Message: "resumed"})
	default:
		_ = json.NewEncoder(conn).Encode(control.SimpleResponse{OK: false, Message: fmt.Sprintf("unknown op %q", req.Op)})
	}
}
