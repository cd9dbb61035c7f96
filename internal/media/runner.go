package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CommandRunner executes an external command and returns its combined output.
// Tests substitute this to avoid invoking real binaries.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Runner wraps every ffmpeg/ffprobe invocation used by the pipeline.
type Runner struct {
	ffmpeg  string
	ffprobe string

	probeTimeout      time.Duration
	extractionTimeout time.Duration
	operationTimeout  time.Duration

	sampleRate int
	channels   int

	run CommandRunner
}

// Options configures a Runner.
type Options struct {
	FFmpeg            string
	FFprobe           string
	ProbeTimeout      time.Duration
	ExtractionTimeout time.Duration
	OperationTimeout  time.Duration
	SampleRate        int
	Channels          int
	CommandRunner     CommandRunner
}

// NewRunner builds a Runner, filling unset options with defaults.
func NewRunner(opts Options) *Runner {
	r := &Runner{
		ffmpeg:            strings.TrimSpace(opts.FFmpeg),
		ffprobe:           strings.TrimSpace(opts.FFprobe),
		probeTimeout:      opts.ProbeTimeout,
		extractionTimeout: opts.ExtractionTimeout,
		operationTimeout:  opts.OperationTimeout,
		sampleRate:        opts.SampleRate,
		channels:          opts.Channels,
		run:               opts.CommandRunner,
	}
	if r.ffmpeg == "" {
		r.ffmpeg = "ffmpeg"
	}
	if r.ffprobe == "" {
		r.ffprobe = "ffprobe"
	}
	if r.probeTimeout <= 0 {
		r.probeTimeout = 30 * time.Second
	}
	if r.extractionTimeout <= 0 {
		r.extractionTimeout = 300 * time.Second
	}
	if r.operationTimeout <= 0 {
		r.operationTimeout = 120 * time.Second
	}
	if r.sampleRate <= 0 {
		r.sampleRate = 44100
	}
	if r.channels <= 0 {
		r.channels = 2
	}
	if r.run == nil {
		r.run = execCommand
	}
	return r
}

// SampleRate returns the canonical sample rate every output is normalized to.
func (r *Runner) SampleRate() int { return r.sampleRate }

// Channels returns the canonical channel count.
func (r *Runner) Channels() int { return r.channels }

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

func (r *Runner) ffmpegRun(ctx context.Context, timeout time.Duration, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	if _, err := r.run(ctx, r.ffmpeg, full...); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("ffmpeg: %w", ErrProbeTimeout)
		}
		return err
	}
	return nil
}

// canonicalArgs yields the output encoding flags for the pipeline's canonical
// WAV format.
func (r *Runner) canonicalArgs() []string {
	return []string{
		"-ac", strconv.Itoa(r.channels),
		"-ar", strconv.Itoa(r.sampleRate),
		"-c:a", "pcm_s16le",
	}
}

// ExtractAudioTrack extracts the audio stream of a (possibly video) container
// into a canonical-format WAV file. Fails when no audio stream is present.
func (r *Runner) ExtractAudioTrack(ctx context.Context, source, dest string) error {
	info, err := r.Probe(ctx, source)
	if err != nil {
		return err
	}
	if !info.HasAudio {
		return fmt.Errorf("extract audio from %s: %w", filepath.Base(source), ErrNoAudioStream)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("extract audio: ensure output dir: %w", err)
	}

	args := append([]string{
		"-i", source,
		"-vn", "-sn", "-dn",
	}, r.canonicalArgs()...)
	args = append(args, dest)
	if err := r.ffmpegRun(ctx, r.extractionTimeout, args...); err != nil {
		return fmt.Errorf("ffmpeg extract: %w", err)
	}
	return nil
}

// ExtractRange extracts a [start, start+duration) slice of the source audio
// into a canonical-format WAV file.
func (r *Runner) ExtractRange(ctx context.Context, source string, startSec, durationSec float64, dest string) error {
	if durationSec <= 0 {
		return fmt.Errorf("extract range: invalid duration %v", durationSec)
	}
	args := append([]string{
		"-ss", formatSeconds(startSec),
		"-t", formatSeconds(durationSec),
		"-i", source,
		"-vn", "-sn", "-dn",
	}, r.canonicalArgs()...)
	args = append(args, dest)
	if err := r.ffmpegRun(ctx, r.operationTimeout, args...); err != nil {
		return fmt.Errorf("ffmpeg extract range: %w", err)
	}
	return nil
}

// Silence writes a canonical-format silence clip of the given duration.
func (r *Runner) Silence(ctx context.Context, durationSec float64, dest string) error {
	if durationSec <= 0 {
		return fmt.Errorf("silence: invalid duration %v", durationSec)
	}
	args := append([]string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=%s", r.sampleRate, channelLayout(r.channels)),
		"-t", formatSeconds(durationSec),
	}, r.canonicalArgs()...)
	args = append(args, dest)
	if err := r.ffmpegRun(ctx, r.operationTimeout, args...); err != nil {
		return fmt.Errorf("ffmpeg silence: %w", err)
	}
	return nil
}

// Normalize re-encodes the input to the canonical sample rate, channel
// layout, and sample format without altering duration.
func (r *Runner) Normalize(ctx context.Context, source, dest string) error {
	args := append([]string{"-i", source, "-vn"}, r.canonicalArgs()...)
	args = append(args, dest)
	if err := r.ffmpegRun(ctx, r.operationTimeout, args...); err != nil {
		return fmt.Errorf("ffmpeg normalize: %w", err)
	}
	return nil
}

// PadTo appends trailing silence so the output lasts exactly targetSec.
func (r *Runner) PadTo(ctx context.Context, source string, targetSec float64, dest string) error {
	if targetSec <= 0 {
		return fmt.Errorf("pad: invalid target duration %v", targetSec)
	}
	args := append([]string{
		"-i", source,
		"-af", "apad",
		"-t", formatSeconds(targetSec),
	}, r.canonicalArgs()...)
	args = append(args, dest)
	if err := r.ffmpegRun(ctx, r.operationTimeout, args...); err != nil {
		return fmt.Errorf("ffmpeg pad: %w", err)
	}
	return nil
}

// TrimTo cuts the output hard at targetSec.
func (r *Runner) TrimTo(ctx context.Context, source string, targetSec float64, dest string) error {
	if targetSec <= 0 {
		return fmt.Errorf("trim: invalid target duration %v", targetSec)
	}
	args := append([]string{
		"-i", source,
		"-t", formatSeconds(targetSec),
	}, r.canonicalArgs()...)
	args = append(args, dest)
	if err := r.ffmpegRun(ctx, r.operationTimeout, args...); err != nil {
		return fmt.Errorf("ffmpeg trim: %w", err)
	}
	return nil
}

// Stretch applies a pitch-preserving tempo change. A factor above 1 speeds
// the audio up (shortens it); below 1 slows it down.
func (r *Runner) Stretch(ctx context.Context, source string, factor float64, dest string) error {
	filter, err := atempoChain(factor)
	if err != nil {
		return err
	}
	args := append([]string{
		"-i", source,
		"-af", filter,
	}, r.canonicalArgs()...)
	args = append(args, dest)
	if err := r.ffmpegRun(ctx, r.operationTimeout, args...); err != nil {
		return fmt.Errorf("ffmpeg stretch: %w", err)
	}
	return nil
}

// atempoChain expresses an arbitrary positive tempo factor as a chain of
// atempo filters, each within the filter's supported [0.5, 2.0] range.
func atempoChain(factor float64) (string, error) {
	if factor <= 0 {
		return "", fmt.Errorf("stretch: invalid tempo factor %v", factor)
	}
	var stages []string
	for factor > 2.0 {
		stages = append(stages, "atempo=2.0")
		factor /= 2.0
	}
	for factor < 0.5 {
		stages = append(stages, "atempo=0.5")
		factor /= 0.5
	}
	stages = append(stages, fmt.Sprintf("atempo=%s", formatSeconds(factor)))
	return strings.Join(stages, ","), nil
}

// Concat losslessly concatenates canonical-format files in order using the
// ffmpeg concat demuxer.
func (r *Runner) Concat(ctx context.Context, sources []string, dest string) error {
	if len(sources) == 0 {
		return fmt.Errorf("concat: no input files")
	}
	for _, source := range sources {
		if _, err := os.Stat(source); err != nil {
			return fmt.Errorf("concat input %s: %w", filepath.Base(source), ErrNotFound)
		}
	}

	listPath := dest + ".txt"
	var sb strings.Builder
	for _, source := range sources {
		absolute, err := filepath.Abs(source)
		if err != nil {
			return fmt.Errorf("concat: resolve %s: %w", source, err)
		}
		fmt.Fprintf(&sb, "file '%s'\n", absolute)
	}
	if err := os.WriteFile(listPath, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("concat: write list file: %w", err)
	}
	defer os.Remove(listPath)

	args := append([]string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
	}, r.canonicalArgs()...)
	args = append(args, dest)
	if err := r.ffmpegRun(ctx, r.extractionTimeout, args...); err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}
	return nil
}

// EncodeFinal produces the deliverable container from a canonical WAV input.
func (r *Runner) EncodeFinal(ctx context.Context, source, dest, container, bitrate string) error {
	args := []string{"-i", source, "-vn"}
	switch strings.ToLower(strings.TrimSpace(container)) {
	case "m4a":
		args = append(args, "-c:a", "aac", "-b:a", bitrate)
	case "mp3":
		args = append(args, "-c:a", "libmp3lame", "-b:a", bitrate)
	case "wav":
		args = append(args, "-c:a", "pcm_s16le")
	default:
		return fmt.Errorf("encode: unsupported container %q", container)
	}
	args = append(args, "-ar", strconv.Itoa(r.sampleRate), "-ac", strconv.Itoa(r.channels), dest)
	if err := r.ffmpegRun(ctx, r.extractionTimeout, args...); err != nil {
		return fmt.Errorf("ffmpeg encode: %w", err)
	}
	return nil
}

func channelLayout(channels int) string {
	if channels == 1 {
		return "mono"
	}
	return "stereo"
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
