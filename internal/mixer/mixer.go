// Package mixer combines a reconstructed voice track with an optional
// background track in the sample domain. The voice track's length is
// authoritative: the background is looped or trimmed to cover it, never
// the reverse.
package mixer

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrMixing marks failures while combining tracks.
var ErrMixing = errors.New("mixing failed")

const (
	defaultVoiceGain      = 0.8
	defaultBackgroundGain = 0.3

	// Peak normalization leaves a little headroom below full scale.
	normalizeHeadroom = 0.95

	// Ducking analyzes the voice in short RMS windows.
	duckWindowSeconds = 0.1
)

// Options controls gains and ducking.
type Options struct {
	VoiceGain      float64
	BackgroundGain float64

	// Ducking lowers the background gain wherever the voice RMS
	// envelope exceeds DuckThreshold, multiplying it by DuckReduction.
	Ducking       bool
	DuckThreshold float64
	DuckReduction float64
}

func (o Options) withDefaults() Options {
	if o.VoiceGain <= 0 {
		o.VoiceGain = defaultVoiceGain
	}
	if o.BackgroundGain <= 0 {
		o.BackgroundGain = defaultBackgroundGain
	}
	if o.DuckThreshold <= 0 {
		o.DuckThreshold = 0.1
	}
	if o.DuckReduction <= 0 {
		o.DuckReduction = 0.3
	}
	return o
}

type track struct {
	samples    [][]float64 // per channel
	sampleRate int
	channels   int
}

func (t *track) frames() int {
	if len(t.samples) == 0 {
		return 0
	}
	return len(t.samples[0])
}

// Mix combines voicePath with an optional background (empty path means
// voice-only) and writes a 16-bit WAV to outPath. Both inputs must
// already share a sample rate; the pipeline normalizes them beforehand.
// The summed signal is peak-normalized down to headroom only when it
// clips; quiet mixes are never scaled up.
func Mix(voicePath, backgroundPath, outPath string, opts Options) error {
	opts = opts.withDefaults()

	voice, err := loadTrack(voicePath)
	if err != nil {
		return fmt.Errorf("%w: voice: %v", ErrMixing, err)
	}

	var background *track
	if backgroundPath != "" {
		background, err = loadTrack(backgroundPath)
		if err != nil {
			return fmt.Errorf("%w: background: %v", ErrMixing, err)
		}
		if background.sampleRate != voice.sampleRate {
			return fmt.Errorf("%w: sample rate mismatch (voice %d, background %d)",
				ErrMixing, voice.sampleRate, background.sampleRate)
		}
	}

	frames := voice.frames()
	channels := voice.channels
	mixed := make([][]float64, channels)
	for ch := range mixed {
		mixed[ch] = make([]float64, frames)
	}

	var duckMask []float64
	if background != nil && opts.Ducking {
		duckMask = duckGains(voice, opts)
	}

	for ch := 0; ch < channels; ch++ {
		bgChannel := ch
		for i := 0; i < frames; i++ {
			sample := voice.samples[ch][i] * opts.VoiceGain
			if background != nil {
				bgGain := opts.BackgroundGain
				if duckMask != nil {
					bgGain = duckMask[i]
				}
				sample += backgroundSample(background, bgChannel, i) * bgGain
			}
			mixed[ch][i] = sample
		}
	}

	normalizePeak(mixed)

	if err := writeTrack(outPath, mixed, voice.sampleRate); err != nil {
		return fmt.Errorf("%w: %v", ErrMixing, err)
	}
	return nil
}

// backgroundSample loops the background to cover any voice position.
func backgroundSample(background *track, channel, frame int) float64 {
	if background.frames() == 0 {
		return 0
	}
	if channel >= background.channels {
		channel = background.channels - 1
	}
	return background.samples[channel][frame%background.frames()]
}

// duckGains computes a per-frame background gain from the voice RMS
// envelope: full gain below the threshold, reduced gain above it. The
// mask is binary per window, not a smooth ramp.
func duckGains(voice *track, opts Options) []float64 {
	frames := voice.frames()
	window := int(duckWindowSeconds * float64(voice.sampleRate))
	if window < 1 {
		window = 1
	}

	reduced := opts.BackgroundGain * opts.DuckReduction
	gains := make([]float64, frames)
	for start := 0; start < frames; start += window {
		end := start + window
		if end > frames {
			end = frames
		}
		var sum float64
		for ch := 0; ch < voice.channels; ch++ {
			for i := start; i < end; i++ {
				s := voice.samples[ch][i]
				sum += s * s
			}
		}
		rms := math.Sqrt(sum / float64((end-start)*voice.channels))
		gain := opts.BackgroundGain
		if rms >= opts.DuckThreshold {
			gain = reduced
		}
		for i := start; i < end; i++ {
			gains[i] = gain
		}
	}
	return gains
}

// normalizePeak scales the mix down to headroom when it clips. Quiet
// mixes are left untouched.
func normalizePeak(mixed [][]float64) {
	var peak float64
	for _, channel := range mixed {
		for _, sample := range channel {
			if abs := math.Abs(sample); abs > peak {
				peak = abs
			}
		}
	}
	if peak <= 1.0 {
		return
	}
	scale := normalizeHeadroom / peak
	for _, channel := range mixed {
		for i := range channel {
			channel[i] *= scale
		}
	}
}

func loadTrack(path string) (*track, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("decode %s: empty audio", path)
	}

	channels := buf.Format.NumChannels
	scale := 1.0
	if decoder.BitDepth > 0 {
		scale = float64(int64(1) << (decoder.BitDepth - 1))
	}
	frames := len(buf.Data) / channels
	samples := make([][]float64, channels)
	for ch := range samples {
		samples[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			samples[ch][i] = float64(buf.Data[i*channels+ch]) / scale
		}
	}
	return &track{samples: samples, sampleRate: buf.Format.SampleRate, channels: channels}, nil
}

func writeTrack(path string, samples [][]float64, sampleRate int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	channels := len(samples)
	frames := 0
	if channels > 0 {
		frames = len(samples[0])
	}

	encoder := wav.NewEncoder(file, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, frames*channels),
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			sample := samples[ch][i]
			if sample > 1.0 {
				sample = 1.0
			}
			if sample < -1.0 {
				sample = -1.0
			}
			buf.Data[i*channels+ch] = int(sample * 32767)
		}
	}
	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
