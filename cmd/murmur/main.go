package main

import (
	"fmt"
	"os"

	"murmur/internal/control"
	"murmur/internal/daemon"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "murmur",
		Short: "Murmur — always-on dictation into the focused text field",
		Long: `Murmur captures your microphone, transcribes continuously, and keeps the
focused text field in sync with the recognizer: partial text appears as you
speak and is corrected in place as the hypothesis improves.

Key commands:
  start|stop|restart        Daemon lifecycle
  status [--json]           Uptime, counters, last transcripts
  pause|resume              Toggle dictation without stopping the daemon
  mic list|set              Select microphone (alias: microphone, mics)
  doctor                    Check deps, model, focus command, portaudio
  health|tail-log           Liveness ping, log tail
  test-type|test-hook       Exercise the output path / hook manually

Notable flags/env:
  --metrics-addr <addr>     Enable /metrics (Prometheus text)
  --feed-addr <addr>        Enable the websocket status feed
  Env overrides: MURMUR_METRICS_ADDR, MURMUR_FEED_ADDR,
                 MURMUR_LOG_LEVEL/FORMAT, MURMUR_TRANSCRIPTS_ENABLED,
                 MURMUR_FOCUS_COMMAND`,
		Example: `  murmur start --metrics-addr 127.0.0.1:9321
  murmur mic list
  murmur mic set --index 1
  murmur pause
  murmur test-type "hello world"
  murmur status --json`,
		DisableFlagsInUseLine: true,
	}

	root.Version = version
	root.SetVersionTemplate("Murmur v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML). Defaults to ~/.config/murmur/config.toml")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(daemon.NewStartCmd(cfgPath))
	root.AddCommand(daemon.NewStopCmd(cfgPath))
	root.AddCommand(daemon.NewRestartCmd(cfgPath))
	root.AddCommand(control.NewStatusCmd(cfgPath))
	root.AddCommand(control.NewHealthCmd(cfgPath))
	root.AddCommand(control.NewPauseCmd(cfgPath))
	root.AddCommand(control.NewResumeCmd(cfgPath))
	root.AddCommand(control.NewTailLogCmd(cfgPath))
	root.AddCommand(control.NewMicCmd(cfgPath))
	root.AddCommand(control.NewTestHookCmd(cfgPath))
	root.AddCommand(control.NewTestTypeCmd(cfgPath))
	root.AddCommand(control.NewDoctorCmd(cfgPath))

	// Hidden internal serve command used by start.
	root.AddCommand(daemon.NewServeCmd(cfgPath))

	applyColorHelp(root)

	return root.Execute()
}

func applyColorHelp(root *cobra.Command) {
	const (
		boldBlue = "\033[1;34m"
		green    = "\033[32m"
		bold     = "\033[1m"
		dim      = "\033[2m"
		reset    = "\033[0m"
	)
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		write := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format, args...) }
		writeln := func(line string) { _, _ = fmt.Fprintln(out, line) }

		write("%sMurmur%s — always-on dictation into the focused text field %s(v%s)%s\n", boldBlue, reset, dim, version, reset)
		write("%sListens on mic, transcribes continuously, and types what you say as you say it.%s\n\n", dim, reset)

		write("%sUsage%s\n", bold, reset)
		write("  murmur [command] [flags]\n\n")

		write("%sKey commands%s\n", bold, reset)
		writeln("  start|stop|restart          daemon lifecycle")
		writeln("  status [--json]             uptime, counters, last transcripts")
		writeln("  pause|resume                toggle dictation without stopping")
		writeln("  mic list|set                select input device (alias: microphone, mics)")
		writeln("  doctor                      check deps/model/focus command/portaudio")
		writeln("  health                      control-socket liveness ping")
		writeln("  tail-log                    show last log lines")
		writeln("  test-type \"text\"           type into the focused field manually")
		writeln("  test-hook \"text\"           invoke the hook manually")
		writeln("")

		write("%sNotable flags & env%s\n", bold, reset)
		writeln("  --metrics-addr <addr>   enable /metrics (Prometheus)")
		writeln("  --feed-addr <addr>      enable websocket status feed")
		writeln("  -c, --config <path>     config file (default ~/.config/murmur/config.toml)")
		writeln("  Env: MURMUR_METRICS_ADDR=host:port, MURMUR_FEED_ADDR=host:port,")
		writeln("       MURMUR_LOG_LEVEL=debug, MURMUR_LOG_FORMAT=json,")
		writeln("       MURMUR_TRANSCRIPTS_ENABLED=0, MURMUR_FOCUS_COMMAND=\"...\"")
		writeln("")

		write("%sExamples%s\n", bold, reset)
		writeln("  murmur start --metrics-addr 127.0.0.1:9321")
		writeln("  murmur mic list")
		writeln("  murmur mic set --index 1")
		writeln("  murmur pause")
		writeln("  murmur test-type \"hello world\"")
		writeln("  murmur status --json")
		writeln("")

		write("%sCommands%s\n", bold, reset)
		for _, c := range cmd.Commands() {
			if c.Hidden {
				continue
			}
			write("  %s%-15s%s %s\n", green, c.Name(), reset, c.Short)
		}
	})
}
