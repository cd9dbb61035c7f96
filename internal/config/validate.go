package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateMix(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateVoices(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.SilenceGapSeconds <= 0 {
		return errors.New("pipeline.silence_gap_seconds must be positive")
	}
	if c.Pipeline.MinSegmentSeconds <= 0 {
		return errors.New("pipeline.min_segment_seconds must be positive")
	}
	if c.Pipeline.DurationTolerance <= 0 {
		return errors.New("pipeline.duration_tolerance_seconds must be positive")
	}
	if c.Pipeline.MaxStretchFactor <= 1.0 {
		return errors.New("pipeline.max_stretch_factor must be greater than 1.0")
	}
	if c.Pipeline.MaxChunkLength < 100 {
		return errors.New("pipeline.max_chunk_length must be at least 100")
	}
	if c.Pipeline.SampleRate <= 0 || c.Pipeline.Channels <= 0 {
		return errors.New("pipeline.sample_rate and pipeline.channels must be positive")
	}
	return nil
}

func (c *Config) validateMix() error {
	if c.Mix.VoiceGain < 0 || c.Mix.BackgroundGain < 0 {
		return errors.New("mix gains must not be negative")
	}
	if c.Mix.DuckingReduction < 0 || c.Mix.DuckingReduction > 1 {
		return errors.New("mix.ducking_reduction must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateExport() error {
	switch strings.ToLower(strings.TrimSpace(c.Export.Container)) {
	case "m4a", "mp3", "wav":
		return nil
	default:
		return fmt.Errorf("export.container: unsupported value %q", c.Export.Container)
	}
}

func (c *Config) validateTools() error {
	if strings.TrimSpace(c.Tools.FFmpeg) == "" {
		return errors.New("tools.ffmpeg must be set")
	}
	if strings.TrimSpace(c.Tools.FFprobe) == "" {
		return errors.New("tools.ffprobe must be set")
	}
	if c.Tools.ProbeTimeout <= 0 || c.Tools.ExtractionTimeout <= 0 || c.Tools.OperationTimeout <= 0 {
		return errors.New("tools timeouts must be positive")
	}
	return nil
}

func (c *Config) validateVoices() error {
	for lang, entries := range c.Voices {
		for i, entry := range entries {
			if strings.TrimSpace(entry.Name) == "" {
				return fmt.Errorf("voices.%s[%d].name must be set", lang, i)
			}
			if entry.PitchHz <= 0 {
				return fmt.Errorf("voices.%s[%d].pitch_hz must be positive", lang, i)
			}
		}
	}
	return nil
}
