// Package media is the single subprocess boundary to ffmpeg and ffprobe.
// Probe inspects container metadata; Runner performs every local audio
// operation the pipeline needs (extraction, silence generation, padding,
// tempo stretching, trimming, concatenation, final encoding). No other
// package shells out to audio tools directly.
package media
