// Package control holds the control-socket protocol shared by the daemon
// and the CLI, plus the CLI commands that speak it. Requests are single
// JSON lines over the unix socket; responses are single JSON objects.
package control

import "time"

type Request struct {
	Op string `json:"op"`
}

type Status struct {
	Running       bool         `json:"running"`
	Paused        bool         `json:"paused"`
	UptimeSec     float64      `json:"uptime_sec"`
	Backend       string       `json:"backend"`
	Utterances    uint64       `json:"utterances"`
	FramesDropped uint64       `json:"frames_dropped"`
	EditsApplied  uint64       `json:"edits_applied"`
	EditsSkipped  uint64       `json:"edits_skipped"`
	QueueDepth    int          `json:"queue_depth"`
	Transcripts   []Transcript `json:"transcripts"`
}

type SimpleResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type Transcript struct {
	Text      string    `json:"text"`
	Utterance uint64    `json:"utterance"`
	Timestamp time.Time `json:"timestamp"`
}
