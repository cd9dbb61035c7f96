package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"dubber/internal/logging"
	"dubber/internal/media"
)

const (
	// durationTolerance is the acceptable mismatch between synthesized
	// and target durations before any correction is applied.
	defaultDurationTolerance = 0.05
	// maxStretchFactor caps pitch-preserving compression; beyond it the
	// audio is trimmed instead to keep speech intelligible.
	defaultMaxStretchFactor = 1.35
)

// DurationMatcher conforms synthesized audio to a segment's target
// duration: silence for degenerate targets, pass-through within
// tolerance, trailing-silence padding when short, tempo stretch then
// trim when long, and trim-only when stretching would distort speech.
type DurationMatcher struct {
	media      *media.Runner
	tolerance  float64
	maxStretch float64
	logger     *slog.Logger
}

// NewDurationMatcher builds a matcher; zero tolerance or stretch values
// fall back to the defaults.
func NewDurationMatcher(runner *media.Runner, tolerance, maxStretch float64, logger *slog.Logger) *DurationMatcher {
	if tolerance <= 0 {
		tolerance = defaultDurationTolerance
	}
	if maxStretch <= 1 {
		maxStretch = defaultMaxStretchFactor
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &DurationMatcher{media: runner, tolerance: tolerance, maxStretch: maxStretch, logger: logger}
}

// Match writes audio of exactly targetDuration (within tolerance) to
// dest, derived from inputPath. The output is always in the canonical
// format regardless of branch.
func (m *DurationMatcher) Match(ctx context.Context, inputPath string, targetDuration float64, dest string) error {
	if targetDuration <= 0 {
		return fmt.Errorf("duration match: non-positive target %v", targetDuration)
	}
	// Degenerate targets are pure silence; the input is discarded.
	if targetDuration <= m.tolerance {
		return m.media.Silence(ctx, targetDuration, dest)
	}

	actual, err := m.media.Duration(ctx, inputPath)
	if err != nil {
		return fmt.Errorf("duration match: %w", err)
	}

	diff := math.Abs(actual - targetDuration)
	switch {
	case diff <= m.tolerance:
		return m.media.Normalize(ctx, inputPath, dest)
	case actual < targetDuration:
		return m.media.PadTo(ctx, inputPath, targetDuration, dest)
	default:
		factor := actual / targetDuration
		if factor <= m.maxStretch {
			stretched := dest + ".stretch.wav"
			if err := m.media.Stretch(ctx, inputPath, factor, stretched); err != nil {
				return err
			}
			return m.media.TrimTo(ctx, stretched, targetDuration, dest)
		}
		m.logger.Warn("segment audio too long to stretch, trimming with content loss",
			logging.Float64("actual_seconds", actual),
			logging.Float64("target_seconds", targetDuration),
			logging.Float64("speed_factor", factor),
		)
		return m.media.TrimTo(ctx, inputPath, targetDuration, dest)
	}
}
