package main

import (
	"fmt"
	"os"

	"murmur/internal/config"
)

// showcfg prints the effective configuration after defaults, file, and
// env overrides. Debugging helper; not installed.
func main() {
	path := ""
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("config=%s\n", cfg.Paths.ConfigPath)
	fmt.Printf("audio: device=%q index=%d rate=%d ch=%d frame=%dms\n",
		cfg.Audio.DeviceName, cfg.Audio.DeviceIndex, cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.FrameMS)
	fmt.Printf("queue: max_frames=%d\n", cfg.Queue.MaxFrames)
	fmt.Printf("asr: backend=%s model=%q lang=%s silence=%dms partial=%dms\n",
		cfg.ASR.Backend, cfg.ASR.ModelPath, cfg.ASR.Language, cfg.ASR.SilenceMS, cfg.ASR.PartialMS)
	fmt.Printf("sync: unit=%s separator=%q announce_silence=%v\n",
		cfg.Sync.DiffUnit, cfg.Sync.Separator, cfg.Sync.AnnounceSilence)
	fmt.Printf("output: mode=%s focus=%q ttl=%dms paste_threshold=%d\n",
		cfg.Output.Mode, cfg.Output.FocusCommand, cfg.Output.FocusTTLMS, cfg.Output.PasteThreshold)
	fmt.Printf("hook: command=%q args=%q cooldown=%.1fs min_chars=%d\n",
		cfg.Hook.Command, cfg.Hook.Args, cfg.Hook.CooldownSec, cfg.Hook.MinChars)
	fmt.Printf("metrics: enabled=%v addr=%s  feed: enabled=%v addr=%s\n",
		cfg.Metrics.Enabled, cfg.Metrics.Addr, cfg.Feed.Enabled, cfg.Feed.Addr)
}
