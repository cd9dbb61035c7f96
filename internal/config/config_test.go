package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[paths]
work_dir = "` + filepath.Join(dir, "work") + `"
output_dir = "` + filepath.Join(dir, "out") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[pipeline]
language_workers = 3
max_chunk_length = 500

[[voices.es]]
name = "aura-2-celeste-es"
pitch_hz = 210.0
gender = "female"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists {
		t.Fatalf("expected config at %s to exist", resolved)
	}
	if cfg.Pipeline.LanguageWorkers != 3 {
		t.Fatalf("language_workers = %d, want 3", cfg.Pipeline.LanguageWorkers)
	}
	if cfg.Pipeline.MaxChunkLength != 500 {
		t.Fatalf("max_chunk_length = %d, want 500", cfg.Pipeline.MaxChunkLength)
	}
	voices := cfg.Voices["es"]
	if len(voices) != 1 || voices[0].Name != "aura-2-celeste-es" {
		t.Fatalf("unexpected voices: %+v", voices)
	}
	// Untouched sections keep defaults.
	if cfg.Pipeline.MaxStretchFactor != 1.35 {
		t.Fatalf("max_stretch_factor = %v, want default", cfg.Pipeline.MaxStretchFactor)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero silence gap", func(c *Config) { c.Pipeline.SilenceGapSeconds = 0 }},
		{"stretch factor at 1", func(c *Config) { c.Pipeline.MaxStretchFactor = 1.0 }},
		{"tiny chunk length", func(c *Config) { c.Pipeline.MaxChunkLength = 10 }},
		{"negative gain", func(c *Config) { c.Mix.VoiceGain = -1 }},
		{"bad container", func(c *Config) { c.Export.Container = "ogg" }},
		{"missing ffmpeg", func(c *Config) { c.Tools.FFmpeg = "" }},
		{"voice without pitch", func(c *Config) {
			c.Voices = map[string][]VoiceEntry{"es": {{Name: "x", PitchHz: 0}}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}
	if _, _, exists, err := Load(path); err != nil || !exists {
		t.Fatalf("sample config should load: exists=%v err=%v", exists, err)
	}
}
