package output

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

const focusProbeTimeout = time.Second

// FocusProbe answers "does a text input have focus right now" by running a
// user-configured command (osascript on macOS, kdotool/xdotool on Linux).
// The result is cached for a short TTL so per-edit checks stay cheap. An
// empty command means focus is always assumed.
type FocusProbe struct {
	argv   []string
	ttl    time.Duration
	logger *logrus.Logger

	mu      sync.Mutex
	focused bool
	checked time.Time
}

// NewFocusProbe parses the command with shell-style splitting.
func NewFocusProbe(command string, ttlMS int, logger *logrus.Logger) (*FocusProbe, error) {
	var argv []string
	if strings.TrimSpace(command) != "" {
		var err error
		argv, err = shlex.Split(command)
		if err != nil {
			return nil, err
		}
	}
	if ttlMS <= 0 {
		ttlMS = 250
	}
	return &FocusProbe{
		argv:   argv,
		ttl:    time.Duration(ttlMS) * time.Millisecond,
		logger: logger,
	}, nil
}

// Focused runs the probe, or returns the cached answer when fresh.
func (p *FocusProbe) Focused() bool {
	if len(p.argv) == 0 {
		return true
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if time.Since(p.checked) < p.ttl {
		return p.focused
	}

	p.focused = p.run()
	p.checked = time.Now()
	return p.focused
}

func (p *FocusProbe) run() bool {
	ctx, cancel := context.WithTimeout(context.Background(), focusProbeTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, p.argv[0], p.argv[1:]...)
	out, err := cmd.Output()
	if err != nil {
		p.logger.Debugf("focus probe: %v", err)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(string(out))) {
	case "false", "0", "no":
		return false
	}
	return true
}
