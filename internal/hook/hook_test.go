package hook

import (
	"context"
	"testing"
	"time"

	"murmur/internal/config"
	"murmur/internal/logging"
)

func TestShouldRunCooldown(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Hook.Command = "/bin/echo"
	cfg.Hook.CooldownSec = 0.5

	r, err := NewRunner(cfg, logging.NewTestLogger())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	job := Job{Text: "test", Timestamp: time.Now()}
	if !r.ShouldRun(job) {
		t.Fatalf("first call should run")
	}
	if err := r.Run(context.Background(), job); err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.ShouldRun(job) {
		t.Fatalf("cooldown should block immediate subsequent run")
	}
	time.Sleep(time.Duration(cfg.Hook.CooldownSec*float64(time.Second)) + 20*time.Millisecond)
	if !r.ShouldRun(job) {
		t.Fatalf("should run after cooldown")
	}
}

func TestShouldRunMinChars(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Hook.Command = "/bin/echo"
	cfg.Hook.MinChars = 5

	r, err := NewRunner(cfg, logging.NewTestLogger())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if r.ShouldRun(Job{Text: "hey"}) {
		t.Fatalf("short text should be gated")
	}
	if !r.ShouldRun(Job{Text: "hey there"}) {
		t.Fatalf("long enough text should run")
	}
}

func TestRunWithParsedArgs(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Hook.Command = "/bin/sh"
	cfg.Hook.Args = `-c "test -n \"$MURMUR_TEXT\""`

	r, err := NewRunner(cfg, logging.NewTestLogger())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Run(ctx, Job{Text: "hello", Timestamp: time.Now()}); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestNewRunnerRejectsBadArgs(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Hook.Command = "/bin/echo"
	cfg.Hook.Args = `"unterminated`

	if _, err := NewRunner(cfg, logging.NewTestLogger()); err == nil {
		t.Fatalf("expected shlex error")
	}
}
