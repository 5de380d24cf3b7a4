package control

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"murmur/internal/config"
	"murmur/internal/doctor"
	"murmur/internal/hook"
	"murmur/internal/logging"
	"murmur/internal/output"

	"github.com/spf13/cobra"
)

// request performs one op round trip over the control socket.
func request(socketPath, op string, resp any) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("cannot connect to daemon: %w", err)
	}
	defer conn.Close()
	if err := json.NewEncoder(conn).Encode(Request{Op: op}); err != nil {
		return err
	}
	return json.NewDecoder(conn).Decode(resp)
}

// NewStatusCmd queries daemon status.
func NewStatusCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			var status Status
			if err := request(cfg.Paths.SocketPath, "status", &status); err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(status)
			}
			fmt.Printf("running: %v\npaused: %v\nuptime: %.1fs\nbackend: %s\n",
				status.Running, status.Paused, status.UptimeSec, status.Backend)
			fmt.Printf("utterances: %d  edits: %d applied / %d skipped  frames dropped: %d\n",
				status.Utterances, status.EditsApplied, status.EditsSkipped, status.FramesDropped)
			for _, t := range status.Transcripts {
				fmt.Printf("%s  %s\n", t.Timestamp.Format("15:04:05"), t.Text)
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

// NewHealthCmd pings the control socket.
func NewHealthCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check daemon liveness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			var resp SimpleResponse
			if err := request(cfg.Paths.SocketPath, "health", &resp); err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("daemon unhealthy: %s", resp.Message)
			}
			fmt.Println("ok")
			return nil
		},
	}
}

// NewPauseCmd stops dictation without stopping the daemon.
func NewPauseCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause dictation (audio is discarded, active utterance committed)",
		RunE:  simpleOpRunE(cfgPath, "pause"),
	}
}

// NewResumeCmd restarts dictation after pause.
func NewResumeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume dictation",
		RunE:  simpleOpRunE(cfgPath, "resume"),
	}
}

func simpleOpRunE(cfgPath *string, op string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			return err
		}
		var resp SimpleResponse
		if err := request(cfg.Paths.SocketPath, op, &resp); err != nil {
			return err
		}
		if !resp.OK {
			return fmt.Errorf("%s failed: %s", op, resp.Message)
		}
		fmt.Println(resp.Message)
		return nil
	}
}

// NewTailLogCmd tails the main log file (simple last N lines).
func NewTailLogCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tail-log",
		Short: "Show last 50 log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			return tailFile(cfg.Paths.LogPath, 50)
		},
	}
}

func tailFile(path string, n int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			fmt.Println(l)
		}
	}
	return nil
}

// NewTestHookCmd triggers the hook manually.
func NewTestHookCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "test-hook \"some text\"",
		Short: "Send sample text through the hook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			r, err := hook.NewRunner(cfg, logger)
			if err != nil {
				return err
			}
			return r.Run(cmd.Context(), hook.Job{Text: args[0], Timestamp: time.Now()})
		},
	}
}

// NewTestTypeCmd types sample text into the focused field after a delay,
// for verifying the keyboard output path without speaking.
func NewTestTypeCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test-type \"some text\"",
		Short: "Type sample text into the focused field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			surface, err := output.New(cfg, logger)
			if err != nil {
				return err
			}
			delay, _ := cmd.Flags().GetInt("delay")
			if delay > 0 {
				fmt.Printf("typing in %ds, focus the target field...\n", delay)
				time.Sleep(time.Duration(delay) * time.Second)
			}
			if !surface.IsFocused() {
				return fmt.Errorf("focus command reports no editable field focused")
			}
			return surface.ApplyEdit(0, args[0])
		},
	}
	cmd.Flags().Int("delay", 3, "seconds to wait before typing")
	return cmd
}

// NewDoctorCmd runs environment checks.
func NewDoctorCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check dependencies and config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			results := doctor.Run(cfg)
			exitCode := 0
			for _, r := range results {
				status := "ok"
				if !r.Pass {
					status = "fail"
					exitCode = 1
				}
				fmt.Printf("%-14s %-4s %s\n", r.Name, status, r.Detail)
			}
			if exitCode != 0 {
				return fmt.Errorf("doctor found issues")
			}
			return nil
		},
	}
}
