package voices

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/wav"
)

// Pitch search range, roughly C2 through C7.
const (
	minPitchHz = 65.0
	maxPitchHz = 2093.0

	pitchFrameSize = 2048
	pitchHopSize   = 1024

	// Frames quieter than this fraction of the file's overall RMS are
	// treated as silence and skipped.
	silenceRMSRatio = 0.1

	// Minimum normalized autocorrelation peak for a frame to count as
	// voiced.
	voicingThreshold = 0.3
)

// EstimatePitch returns the average fundamental frequency of a mono or
// stereo WAV file in Hz. Silent and unvoiced frames are skipped; the
// result is the mean over voiced frames. Returns 0.0 when no pitch can
// be estimated, never an error for analysis failure alone.
func EstimatePitch(path string) (float64, error) {
	samples, sampleRate, err := loadMonoSamples(path)
	if err != nil {
		return 0, err
	}
	return estimatePitchFromSamples(samples, sampleRate), nil
}

func loadMonoSamples(path string) ([]float64, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("pitch: open %s: %w", path, err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("pitch: decode %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, 0, fmt.Errorf("pitch: empty audio in %s", path)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	scale := 1.0
	if decoder.BitDepth > 0 {
		scale = float64(int64(1) << (decoder.BitDepth - 1))
	}

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[i*channels+ch]) / scale
		}
		samples[i] = sum / float64(channels)
	}
	return samples, buf.Format.SampleRate, nil
}

func estimatePitchFromSamples(samples []float64, sampleRate int) float64 {
	if sampleRate <= 0 || len(samples) < pitchFrameSize {
		return 0
	}

	globalRMS := rms(samples)
	if globalRMS == 0 {
		return 0
	}
	silenceFloor := globalRMS * silenceRMSRatio

	minLag := int(float64(sampleRate) / maxPitchHz)
	maxLag := int(float64(sampleRate) / minPitchHz)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= pitchFrameSize {
		maxLag = pitchFrameSize - 1
	}

	var total float64
	var voiced int
	for offset := 0; offset+pitchFrameSize <= len(samples); offset += pitchHopSize {
		frame := samples[offset : offset+pitchFrameSize]
		if rms(frame) < silenceFloor {
			continue
		}
		pitch := framePitch(frame, sampleRate, minLag, maxLag)
		if pitch > 0 {
			total += pitch
			voiced++
		}
	}
	if voiced == 0 {
		return 0
	}
	return total / float64(voiced)
}

// framePitch finds the lag with the highest normalized autocorrelation
// within the allowed range, returning 0 for unvoiced frames.
func framePitch(frame []float64, sampleRate, minLag, maxLag int) float64 {
	var energy float64
	for _, s := range frame {
		energy += s * s
	}
	if energy == 0 {
		return 0
	}

	bestLag := 0
	bestCorr := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		for i := 0; i+lag < len(frame); i++ {
			corr += frame[i] * frame[i+lag]
		}
		normalized := corr / energy
		if normalized > bestCorr {
			bestCorr = normalized
			bestLag = lag
		}
	}
	if bestLag == 0 || bestCorr < voicingThreshold {
		return 0
	}
	return float64(sampleRate) / float64(bestLag)
}

func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
