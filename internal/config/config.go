package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Deepgram contains configuration for the Deepgram transcription/TTS provider.
type Deepgram struct {
	APIKey             string `toml:"api_key"`
	BaseURL            string `toml:"base_url"`
	TranscriptionModel string `toml:"transcription_model"`
	RequestTimeout     int    `toml:"request_timeout"`
}

// OpenAI contains configuration for the OpenAI translation provider.
type OpenAI struct {
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	RequestTimeout int     `toml:"request_timeout"`
}

// Pipeline contains tuning parameters for the dubbing pipeline core.
type Pipeline struct {
	SilenceGapSeconds    float64 `toml:"silence_gap_seconds"`
	MinSegmentSeconds    float64 `toml:"min_segment_seconds"`
	DurationTolerance    float64 `toml:"duration_tolerance_seconds"`
	MaxStretchFactor     float64 `toml:"max_stretch_factor"`
	MaxChunkLength       int     `toml:"max_chunk_length"`
	LanguageWorkers      int     `toml:"language_workers"`
	SampleRate           int     `toml:"sample_rate"`
	Channels             int     `toml:"channels"`
	MinSpeakerSampleSecs float64 `toml:"min_speaker_sample_seconds"`
}

// Mix contains configuration for the final mix.
type Mix struct {
	VoiceGain        float64 `toml:"voice_gain"`
	BackgroundGain   float64 `toml:"background_gain"`
	DuckingEnabled   bool    `toml:"ducking_enabled"`
	DuckingThreshold float64 `toml:"ducking_threshold"`
	DuckingReduction float64 `toml:"ducking_reduction"`
}

// Export contains configuration for final deliverables.
type Export struct {
	Container     string `toml:"container"`
	Bitrate       string `toml:"bitrate"`
	WriteCaptions bool   `toml:"write_captions"`
	WriteBundle   bool   `toml:"write_bundle"`
}

// Tools contains the external binary names used for audio processing.
type Tools struct {
	FFmpeg            string `toml:"ffmpeg"`
	FFprobe           string `toml:"ffprobe"`
	ProbeTimeout      int    `toml:"probe_timeout"`
	ExtractionTimeout int    `toml:"extraction_timeout"`
	OperationTimeout  int    `toml:"operation_timeout"`
}

// Workflow contains daemon polling intervals and job concurrency.
type Workflow struct {
	QueuePollInterval int `toml:"queue_poll_interval"`
	JobWorkers        int `toml:"job_workers"`
}

// Notifications contains configuration for ntfy-style push notifications.
type Notifications struct {
	Topic          string `toml:"topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// VoiceEntry describes one synthetic voice available for a target language.
type VoiceEntry struct {
	Name    string  `toml:"name"`
	PitchHz float64 `toml:"pitch_hz"`
	Gender  string  `toml:"gender"`
}

// Config encapsulates all configuration values for dubber.
//
// Configuration sections by subsystem:
//   - Paths: working, output, and log directories
//   - Deepgram: transcription and speech synthesis provider
//   - OpenAI: translation provider
//   - Pipeline: segmentation and duration-matching tuning
//   - Mix: gain levels and ducking behavior
//   - Export: final deliverable container, captions, bundle
//   - Tools: ffmpeg/ffprobe binaries and subprocess timeouts
//   - Workflow: daemon polling interval and job concurrency
//   - Notifications: ntfy push settings
//   - Logging: log format and level
//   - Voices: per-language synthetic voice catalogs (override built-ins)
type Config struct {
	Paths         Paths                   `toml:"paths"`
	Deepgram      Deepgram                `toml:"deepgram"`
	OpenAI        OpenAI                  `toml:"openai"`
	Pipeline      Pipeline                `toml:"pipeline"`
	Mix           Mix                     `toml:"mix"`
	Export        Export                  `toml:"export"`
	Tools         Tools                   `toml:"tools"`
	Workflow      Workflow                `toml:"workflow"`
	Notifications Notifications           `toml:"notifications"`
	Logging       Logging                 `toml:"logging"`
	Voices        map[string][]VoiceEntry `toml:"voices"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dubber/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err = os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dubber.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
