package media

import "errors"

var (
	// ErrNotFound indicates the input path does not exist.
	ErrNotFound = errors.New("media file not found")
	// ErrNoAudioStream indicates the container holds no audio stream.
	ErrNoAudioStream = errors.New("no audio stream present")
	// ErrProbeTimeout indicates ffprobe or ffmpeg exceeded its time budget.
	ErrProbeTimeout = errors.New("media tool timeout")
)
