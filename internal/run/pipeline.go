package run

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"murmur/internal/asr"
	"murmur/internal/audio"
	"murmur/internal/textsync"

	"github.com/sirupsen/logrus"
)

// Pipeline connects the frame queue to the recognizer and the recognizer's
// hypotheses to the sync machine. Two goroutines: the consume loop is the
// queue's single consumer and the recognizer's single feeder; the sync
// loop is the sole caller of the machine and engine, so everything
// downstream of the recognizer stays strictly ordered.
type Pipeline struct {
	logger  *logrus.Logger
	queue   *audio.Queue
	rec     asr.Recognizer
	machine *textsync.Machine
	engine  *textsync.Engine

	recorder *audio.Recorder // nil when recording disabled

	paused atomic.Bool
	cmdCh  chan func()
	done   chan struct{}
}

func NewPipeline(logger *logrus.Logger, queue *audio.Queue, rec asr.Recognizer, machine *textsync.Machine, engine *textsync.Engine, recorder *audio.Recorder) *Pipeline {
	return &Pipeline{
		logger:   logger,
		queue:    queue,
		rec:      rec,
		machine:  machine,
		engine:   engine,
		recorder: recorder,
		cmdCh:    make(chan func()),
		done:     make(chan struct{}),
	}
}

// Run drives both loops until ctx is cancelled, then flushes the active
// utterance and closes the recognizer.
func (p *Pipeline) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.consumeLoop(ctx)
	}()

	p.syncLoop(ctx)
	wg.Wait()
	return nil
}

func (p *Pipeline) consumeLoop(ctx context.Context) {
	for {
		frame, err := p.queue.Dequeue(ctx)
		if err != nil {
			// Context cancelled; let the sync loop flush via Close.
			if err := p.rec.Close(); err != nil {
				p.logger.Warnf("recognizer close: %v", err)
			}
			return
		}
		if p.paused.Load() {
			continue
		}
		if p.recorder != nil {
			p.recorder.Append(frame)
		}
		if err := p.rec.Feed(ctx, frame); err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			p.logger.Errorf("recognizer feed: %v", err)
		}
	}
}

// syncLoop is the only goroutine touching the machine and engine. Pause
// and other cross-goroutine requests arrive as closures on cmdCh so they
// execute between hypotheses, never during one.
func (p *Pipeline) syncLoop(ctx context.Context) {
	defer close(p.done)
	hyps := p.rec.Hypotheses()
	for {
		select {
		case <-ctx.Done():
			// Drain what the recognizer flushes on Close so the last
			// utterance still lands.
			for h := range hyps {
				p.machine.Observe(h)
			}
			p.machine.Flush()
			return
		case fn := <-p.cmdCh:
			fn()
		case h, ok := <-hyps:
			if !ok {
				p.machine.Flush()
				return
			}
			p.machine.Observe(h)
		}
	}
}

// Pause stops feeding audio and commits the in-flight utterance. Frames
// captured while paused are discarded, not queued for later.
func (p *Pipeline) Pause() {
	if !p.paused.CompareAndSwap(false, true) {
		return
	}
	p.logger.Info("pipeline paused")
	p.runOnSyncLoop(func() {
		p.machine.Flush()
		if p.recorder != nil {
			p.recorder.Discard()
		}
	})
}

// Resume restarts audio feeding.
func (p *Pipeline) Resume() {
	if p.paused.CompareAndSwap(true, false) {
		p.logger.Info("pipeline resumed")
	}
}

// Paused reports whether the pipeline is discarding audio.
func (p *Pipeline) Paused() bool {
	return p.paused.Load()
}

// runOnSyncLoop executes fn on the sync goroutine and waits for it. Safe
// to call after shutdown; fn is simply skipped then.
func (p *Pipeline) runOnSyncLoop(fn func()) {
	ran := make(chan struct{})
	select {
	case p.cmdCh <- func() {
		fn()
		close(ran)
	}:
		<-ran
	case <-p.done:
	}
}

func (p *Pipeline) Utterances() uint64    { return p.engine.Utterance() }
func (p *Pipeline) EditsApplied() uint64  { return p.engine.EditsApplied() }
func (p *Pipeline) EditsSkipped() uint64  { return p.engine.EditsSkipped() }
func (p *Pipeline) FramesDropped() uint64 { return p.queue.Dropped() }
func (p *Pipeline) QueueDepth() int       { return p.queue.Len() }
