package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// CanonicalSampleRate is the mono sample rate every frame is converted
	// to before it reaches the recognizer.
	CanonicalSampleRate = 16000

	defaultFrameMS       = 20
	defaultQueueFrames   = 256
	defaultSilenceMS     = 800
	defaultPartialMS     = 400
	defaultMaxSegmentMS  = 30000
	defaultFocusTTLMS    = 250
	defaultPasteThresh   = 120
	defaultStatusTail    = 10
	defaultStateDirLinux = ".local/state/murmur"
	defaultConfigDir     = ".config/murmur"
)

// Config holds user configuration loaded from TOML.
type Config struct {
	Audio struct {
		DeviceName  string `toml:"device_name"`
		DeviceIndex int    `toml:"device_index"`
		SampleRate  int    `toml:"sample_rate"`
		Channels    int    `toml:"channels"`
		FrameMS     int    `toml:"frame_ms"`
	} `toml:"audio"`

	Queue struct {
		MaxFrames int `toml:"max_frames"`
	} `toml:"queue"`

	ASR struct {
		Backend        string `toml:"backend"` // whisper, stream
		ModelPath      string `toml:"model_path"`
		Language       string `toml:"language"`
		SilenceMS      int    `toml:"silence_ms"`
		PartialMS      int    `toml:"partial_ms"`
		MaxSegmentMS   int    `toml:"max_segment_ms"`
		Aggressiveness int    `toml:"aggressiveness"`
		StreamURL      string `toml:"stream_url"`
		StreamKey      string `toml:"stream_key"`
	} `toml:"asr"`

	Sync struct {
		DiffUnit        string `toml:"diff_unit"` // rune, byte
		Separator       string `toml:"separator"`
		AnnounceSilence bool   `toml:"announce_silence"`
	} `toml:"sync"`

	Vocabulary struct {
		Entries []VocabularyEntry `toml:"entries"`
	} `toml:"vocabulary"`

	Output struct {
		Mode           string `toml:"mode"` // type, paste
		FocusCommand   string `toml:"focus_command"`
		FocusTTLMS     int    `toml:"focus_ttl_ms"`
		PasteThreshold int    `toml:"paste_threshold"`
		KeyDelayMS     int    `toml:"key_delay_ms"`
	} `toml:"output"`

	Hook struct {
		Command     string            `toml:"command"`
		Args        string            `toml:"args"`
		CooldownSec float64           `toml:"cooldown_sec"`
		TimeoutSec  float64           `toml:"timeout_sec"`
		MinChars    int               `toml:"min_chars"`
		Env         map[string]string `toml:"env"`
	} `toml:"hook"`

	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		Stdout bool   `toml:"stdout"`
	} `toml:"logging"`

	Paths struct {
		StateDir       string `toml:"state_dir"`
		LogPath        string `toml:"log_path"`
		TranscriptPath string `toml:"transcript_path"`
		SocketPath     string `toml:"socket_path"`
		PidPath        string `toml:"pid_path"`
		ConfigPath     string `toml:"-"`
	} `toml:"paths"`

	Metrics struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"metrics"`

	Feed struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"feed"`

	Record struct {
		Enabled bool   `toml:"enabled"`
		Dir     string `toml:"dir"`
	} `toml:"record"`

	Transcripts struct {
		Enabled bool `toml:"enabled"`
	} `toml:"transcripts"`

	UI struct {
		StatusTail int `toml:"status_tail"`
	} `toml:"ui"`
}

// VocabularyEntry maps recurring misrecognitions to the word they should
// have been. Aliases are matched case-insensitively.
type VocabularyEntry struct {
	Word    string   `toml:"word"`
	Aliases []string `toml:"aliases"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	// macOS prefers ~/Library/Application Support/murmur for state/logs
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "murmur")
	}

	cfg := &Config{}

	cfg.Audio.SampleRate = CanonicalSampleRate
	cfg.Audio.Channels = 1
	cfg.Audio.FrameMS = defaultFrameMS
	cfg.Audio.DeviceIndex = -1

	cfg.Queue.MaxFrames = defaultQueueFrames

	cfg.ASR.Backend = "whisper"
	cfg.ASR.ModelPath = filepath.Join(stateDir, "models", "ggml-base.en-q5_1.bin")
	cfg.ASR.Language = "en"
	cfg.ASR.SilenceMS = defaultSilenceMS
	cfg.ASR.PartialMS = defaultPartialMS
	cfg.ASR.MaxSegmentMS = defaultMaxSegmentMS
	cfg.ASR.Aggressiveness = 2

	cfg.Sync.DiffUnit = "rune"
	cfg.Sync.Separator = " "

	cfg.Output.Mode = "type"
	cfg.Output.FocusTTLMS = defaultFocusTTLMS
	cfg.Output.PasteThreshold = defaultPasteThresh

	cfg.Hook.TimeoutSec = 5
	cfg.Hook.Env = map[string]string{}

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	cfg.Paths.StateDir = stateDir
	cfg.Paths.LogPath = filepath.Join(stateDir, "murmur.log")
	cfg.Paths.TranscriptPath = filepath.Join(stateDir, "transcripts.log")
	cfg.Paths.SocketPath = filepath.Join(stateDir, "murmur.sock")
	cfg.Paths.PidPath = filepath.Join(stateDir, "murmur.pid")

	cfg.Metrics.Addr = "127.0.0.1:9321"
	cfg.Feed.Addr = "127.0.0.1:9322"
	cfg.Record.Dir = filepath.Join(stateDir, "utterances")

	cfg.Transcripts.Enabled = true

	cfg.UI.StatusTail = defaultStatusTail

	return cfg, nil
}

// Load loads config from file, applying defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, defaultConfigDir, "config.toml")
	}

	// Read if exists; otherwise write template.
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, err
			}
			if err := Save(cfg, path); err != nil {
				return nil, err
			}
			cfg.Paths.ConfigPath = path
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Paths.ConfigPath = path
	applyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// Validate rejects configurations the pipeline cannot run with.
func Validate(cfg *Config) error {
	if cfg.Audio.Channels < 1 {
		return fmt.Errorf("audio.channels must be >= 1 (got %d)", cfg.Audio.Channels)
	}
	if cfg.Audio.FrameMS <= 0 {
		return fmt.Errorf("audio.frame_ms must be positive (got %d)", cfg.Audio.FrameMS)
	}
	if cfg.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive (got %d)", cfg.Audio.SampleRate)
	}
	if cfg.Queue.MaxFrames < 1 {
		return fmt.Errorf("queue.max_frames must be >= 1 (got %d)", cfg.Queue.MaxFrames)
	}
	switch cfg.Sync.DiffUnit {
	case "rune", "byte":
	default:
		return fmt.Errorf("sync.diff_unit must be \"rune\" or \"byte\" (got %q)", cfg.Sync.DiffUnit)
	}
	switch cfg.Output.Mode {
	case "type", "paste":
	default:
		return fmt.Errorf("output.mode must be \"type\" or \"paste\" (got %q)", cfg.Output.Mode)
	}
	switch cfg.ASR.Backend {
	case "whisper", "stream":
	default:
		return fmt.Errorf("asr.backend must be \"whisper\" or \"stream\" (got %q)", cfg.ASR.Backend)
	}
	if cfg.ASR.Backend == "stream" && cfg.ASR.StreamURL == "" {
		return fmt.Errorf("asr.stream_url required for the stream backend")
	}
	return nil
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{cfg.Paths.StateDir, filepath.Dir(cfg.Paths.LogPath), filepath.Dir(cfg.Paths.TranscriptPath)} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MURMUR_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
		cfg.Metrics.Enabled = true
	}
	if v := os.Getenv("MURMUR_FEED_ADDR"); v != "" {
		cfg.Feed.Addr = v
		cfg.Feed.Enabled = true
	}
	if v := os.Getenv("MURMUR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MURMUR_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("MURMUR_TRANSCRIPTS_ENABLED"); v != "" {
		cfg.Transcripts.Enabled = v != "0" && strings.ToLower(v) != "false"
	}
	if v := os.Getenv("MURMUR_FOCUS_COMMAND"); v != "" {
		cfg.Output.FocusCommand = v
	}
}
