// Package providers defines the narrow interfaces the pipeline uses to
// reach external AI services, plus one concrete adapter per provider in
// subpackages. The pipeline core depends only on these interfaces.
package providers

import (
	"context"
	"errors"

	"dubber/internal/timeline"
)

var (
	// ErrTranscription marks failures of the speech-to-text provider.
	ErrTranscription = errors.New("transcription failed")
	// ErrTranslation marks failures of the translation provider.
	ErrTranslation = errors.New("translation failed")
	// ErrSynthesis marks failures of the text-to-speech provider.
	ErrSynthesis = errors.New("speech synthesis failed")
)

// Transcription is the full result of transcribing one audio file.
type Transcription struct {
	Transcript      string
	Confidence      float64
	DurationSeconds float64
	Utterances      []timeline.Utterance
}

// Transcriber converts audio into diarized text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string, diarize bool) (Transcription, error)
}

// Translator converts text between languages.
type Translator interface {
	Translate(ctx context.Context, text, targetLang, sourceLang string) (string, error)
}

// Synthesizer renders text as speech audio bytes with a given voice.
type Synthesizer interface {
	GenerateSpeech(ctx context.Context, text, targetLang, voiceID string) ([]byte, error)
}
