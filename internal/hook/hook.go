// Package hook runs a user command after each finalized utterance.
package hook

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"murmur/internal/config"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

// Job represents a hook invocation request.
type Job struct {
	Text      string
	Utterance uint64
	Timestamp time.Time
}

// Runner executes the configured hook with cooldown and length gating.
type Runner struct {
	cfg     *config.Config
	logger  *logrus.Logger
	mu      sync.Mutex
	lastRun time.Time
	args    []string
}

// NewRunner parses hook.args once up front so a bad quoting mistake fails
// at startup, not on the first utterance.
func NewRunner(cfg *config.Config, logger *logrus.Logger) (*Runner, error) {
	args, err := ParseArgs(cfg.Hook.Args)
	if err != nil {
		return nil, fmt.Errorf("parse hook.args: %w", err)
	}
	return &Runner{cfg: cfg, logger: logger, args: args}, nil
}

// Enabled reports whether a hook command is configured at all.
func (r *Runner) Enabled() bool {
	return r.cfg.Hook.Command != ""
}

// ShouldRun returns whether this job passes the cooldown and min_chars
// gates. Gated jobs are dropped, not queued.
func (r *Runner) ShouldRun(job Job) bool {
	if !r.Enabled() {
		return false
	}
	if len([]rune(job.Text)) < r.cfg.Hook.MinChars {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg.Hook.CooldownSec <= 0 {
		return true
	}
	return time.Since(r.lastRun).Seconds() >= r.cfg.Hook.CooldownSec
}

// Run executes the hook command with the utterance text appended as the
// last argument and exported as MURMUR_TEXT.
func (r *Runner) Run(ctx context.Context, job Job) error {
	if !r.Enabled() {
		return fmt.Errorf("no hook.command configured")
	}
	r.mu.Lock()
	r.lastRun = time.Now()
	r.mu.Unlock()

	args := append([]string{}, r.args...)
	args = append(args, job.Text)

	runCtx := ctx
	var cancel context.CancelFunc
	if r.cfg.Hook.TimeoutSec > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(float64(time.Second)*r.cfg.Hook.TimeoutSec))
		defer cancel()
	}
	cmd := exec.CommandContext(runCtx, r.cfg.Hook.Command, args...)
	cmd.Env = os.Environ()
	for k, v := range r.cfg.Hook.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Env, fmt.Sprintf("MURMUR_TEXT=%s", job.Text))
	cmd.Env = append(cmd.Env, fmt.Sprintf("MURMUR_UTTERANCE=%d", job.Utterance))

	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		r.logger.Infof("hook output: %s", strings.TrimSpace(string(out)))
	}
	if err != nil {
		return fmt.Errorf("hook failed: %w", err)
	}
	return nil
}

// ParseArgs allows hook.args to be configured as a single shell-quoted
// string.
func ParseArgs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	return shlex.Split(raw)
}
