// Package doctor runs environment checks for the dictation pipeline.
package doctor

import (
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"murmur/internal/config"

	"github.com/google/shlex"
	"github.com/gordonklaus/portaudio"
)

// Result represents a diagnostic check.
type Result struct {
	Name   string
	Pass   bool
	Detail string
}

// Run executes all checks for cfg.
func Run(cfg *config.Config) []Result {
	results := []Result{
		checkFile("config path", cfg.Paths.ConfigPath),
		checkStateDir(cfg.Paths.StateDir),
		checkBackend(cfg),
		checkFocusCommand(cfg.Output.FocusCommand),
		checkPortAudioPkgConfig(),
		checkPortAudio(),
	}
	if cfg.Hook.Command != "" {
		results = append(results, checkExecutable("hook.command", cfg.Hook.Command))
	}
	return results
}

func checkFile(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkStateDir(dir string) Result {
	label := "state dir"
	if dir == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return Result{Name: label, Pass: false, Detail: fmt.Sprintf("not writable: %v", err)}
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return Result{Name: label, Pass: true, Detail: dir}
}

func checkBackend(cfg *config.Config) Result {
	switch cfg.ASR.Backend {
	case "whisper":
		return checkFile("model file", cfg.ASR.ModelPath)
	case "stream":
		label := "stream url"
		u, err := url.Parse(cfg.ASR.StreamURL)
		if err != nil {
			return Result{Name: label, Pass: false, Detail: err.Error()}
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return Result{Name: label, Pass: false, Detail: fmt.Sprintf("scheme %q, want ws or wss", u.Scheme)}
		}
		return Result{Name: label, Pass: true, Detail: cfg.ASR.StreamURL}
	default:
		return Result{Name: "asr backend", Pass: false, Detail: fmt.Sprintf("unknown backend %q", cfg.ASR.Backend)}
	}
}

func checkFocusCommand(cmdline string) Result {
	label := "focus command"
	if cmdline == "" {
		return Result{Name: label, Pass: true, Detail: "not set (focus always assumed)"}
	}
	argv, err := shlex.Split(cmdline)
	if err != nil || len(argv) == 0 {
		return Result{Name: label, Pass: false, Detail: fmt.Sprintf("unparseable: %v", err)}
	}
	return checkExecutable(label, argv[0])
}

func checkExecutable(label, cmd string) Result {
	path := os.ExpandEnv(cmd)
	if strings.Contains(path, "/") || strings.Contains(path, "\\") {
		info, err := os.Stat(path)
		if err != nil {
			return Result{Name: label, Pass: false, Detail: err.Error()}
		}
		if info.IsDir() {
			return Result{Name: label, Pass: false, Detail: "is a directory; point at an executable file"}
		}
		if info.Mode().Perm()&0o111 == 0 {
			return Result{Name: label, Pass: false, Detail: "not executable; chmod +x or choose another command"}
		}
		return Result{Name: label, Pass: true, Detail: path}
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: resolved}
}

func checkPortAudioPkgConfig() Result {
	pkg, err := exec.LookPath("pkg-config")
	if err != nil {
		return Result{Name: "pkg-config", Pass: false, Detail: "pkg-config not found"}
	}
	cmd := exec.Command(pkg, "--exists", "portaudio-2.0")
	if err := cmd.Run(); err != nil {
		return Result{Name: "portaudio pc", Pass: false, Detail: "portaudio-2.0 not found (install portaudio)"}
	}
	versionCmd := exec.Command(pkg, "--modversion", "portaudio-2.0")
	if out, err := versionCmd.Output(); err == nil {
		return Result{Name: "portaudio pc", Pass: true, Detail: strings.TrimSpace(string(out))}
	}
	return Result{Name: "portaudio pc", Pass: true, Detail: "found via pkg-config"}
}

func checkPortAudio() Result {
	if err := portaudio.Initialize(); err != nil {
		return Result{Name: "portaudio", Pass: false, Detail: fmt.Sprintf("init failed: %v", err)}
	}
	defer func() {
		_ = portaudio.Terminate()
	}()
	return Result{Name: "portaudio", Pass: true, Detail: "ok"}
}
