package run

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

type metrics struct {
	partials     atomic.Int64
	finals       atomic.Int64
	hooksSent    atomic.Int64
	hooksSkipped atomic.Int64
	hooksDropped atomic.Int64
}

func (m *metrics) reset() {
	m.partials.Store(0)
	m.finals.Store(0)
	m.hooksSent.Store(0)
	m.hooksSkipped.Store(0)
	m.hooksDropped.Store(0)
}

func (m *metrics) incPartial()     { m.partials.Add(1) }
func (m *metrics) incFinal()       { m.finals.Add(1) }
func (m *metrics) incSent()        { m.hooksSent.Add(1) }
func (m *metrics) incSkipped()     { m.hooksSkipped.Add(1) }
func (m *metrics) incHookDropped() { m.hooksDropped.Add(1) }

func (s *Server) metricsServe(done <-chan struct{}, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "murmur_hypotheses_partial_total %d\n", s.metrics.partials.Load())
		fmt.Fprintf(w, "murmur_hypotheses_final_total %d\n", s.metrics.finals.Load())
		fmt.Fprintf(w, "murmur_utterances_total %d\n", s.pipeline.Utterances())
		fmt.Fprintf(w, "murmur_frames_dropped_total %d\n", s.pipeline.FramesDropped())
		fmt.Fprintf(w, "murmur_edits_applied_total %d\n", s.pipeline.EditsApplied())
		fmt.Fprintf(w, "murmur_edits_skipped_total %d\n", s.pipeline.EditsSkipped())
		fmt.Fprintf(w, "murmur_hooks_sent_total %d\n", s.metrics.hooksSent.Load())
		fmt.Fprintf(w, "murmur_hooks_skipped_total %d\n", s.metrics.hooksSkipped.Load())
		fmt.Fprintf(w, "murmur_hooks_dropped_total %d\n", s.metrics.hooksDropped.Load())
	})
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-done
		_ = server.Close()
	}()
	s.logger.Infof("metrics listening on http://%s/metrics", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Warnf("metrics server: %v", err)
	}
}
