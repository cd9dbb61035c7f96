package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Info summarizes the streams of a media container.
type Info struct {
	DurationSeconds float64
	HasAudio        bool
	HasVideo        bool
	SampleRate      int
	Channels        int
	Codec           string
	Format          string
	SizeBytes       int64
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type probeFormat struct {
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Probe executes ffprobe against the provided path and decodes the result.
func (r *Runner) Probe(ctx context.Context, path string) (Info, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Info{}, fmt.Errorf("probe: %w: empty path", ErrNotFound)
	}
	if _, err := os.Stat(path); err != nil {
		return Info{}, fmt.Errorf("probe %s: %w", path, ErrNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	output, err := r.run(ctx, r.ffprobe,
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-of", "json",
		"--", path,
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Info{}, fmt.Errorf("probe %s: %w", path, ErrProbeTimeout)
		}
		return Info{}, fmt.Errorf("ffprobe inspect: %w", err)
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return Info{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return buildInfo(result), nil
}

func buildInfo(result probeResult) Info {
	info := Info{
		DurationSeconds: parseFloat(result.Format.Duration),
		Format:          firstToken(result.Format.FormatName),
		SizeBytes:       int64(parseFloat(result.Format.Size)),
	}
	for _, stream := range result.Streams {
		switch strings.ToLower(stream.CodecType) {
		case "audio":
			if !info.HasAudio {
				info.HasAudio = true
				info.Codec = stream.CodecName
				info.Channels = stream.Channels
				if rate, err := strconv.Atoi(strings.TrimSpace(stream.SampleRate)); err == nil {
					info.SampleRate = rate
				}
			}
		case "video":
			info.HasVideo = true
		}
	}
	return info
}

// Duration returns the container duration in seconds.
func (r *Runner) Duration(ctx context.Context, path string) (float64, error) {
	info, err := r.Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.DurationSeconds, nil
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func firstToken(value string) string {
	if idx := strings.IndexByte(value, ','); idx >= 0 {
		return value[:idx]
	}
	return value
}
