package deps

import "dubber/internal/config"

// Requirements lists the external binaries the configured pipeline needs.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Tools.FFmpeg,
			Description: "Audio extraction, stretching, and mixing",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Tools.FFprobe,
			Description: "Media inspection and duration probing",
		},
	}
}
