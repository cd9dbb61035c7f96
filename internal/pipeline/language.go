package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"dubber/internal/export"
	"dubber/internal/fileutil"
	"dubber/internal/logging"
	"dubber/internal/media"
	"dubber/internal/mixer"
	"dubber/internal/services"
	"dubber/internal/textchunk"
	"dubber/internal/timeline"
)

// runLanguage processes every segment in timeline order for one target
// language, then reconstructs, mixes, and exports the result.
func (p *Pipeline) runLanguage(ctx context.Context, req Request, prepared *preparedRun, lang, outputDir string) (Result, error) {
	langDir := filepath.Join(prepared.workspace, "lang-"+lang)
	if err := os.MkdirAll(langDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "language", "run", "create language workspace", err)
	}

	assignments := p.catalog.Assign(lang, prepared.profiles, prepared.speakers)
	logger := p.logger.With(logging.String(logging.FieldLanguage, lang))

	p.report(req, Progress{Stage: "translate", Language: lang, Percent: 30,
		Message: "translating and synthesizing segments"})

	processed := make([]ProcessedSegment, 0, len(prepared.segments))
	var translatedParts []string
	var cues []export.Cue
	for i, seg := range prepared.segments {
		segPath := filepath.Join(langDir, fmt.Sprintf("segment_%04d.wav", i))

		if seg.IsSilence {
			if err := p.media.Silence(ctx, seg.Duration(), segPath); err != nil {
				return Result{}, services.Wrap(services.ErrExternalTool, "segment", "run", "generate silence", err)
			}
			processed = append(processed, ProcessedSegment{Index: i, FilePath: segPath})
			continue
		}

		seg.VoiceID = assignments[seg.SpeakerID]
		translated, segCues, err := p.processSpeechSegment(ctx, langDir, i, seg, lang, req.SourceLanguage, segPath)
		if err != nil {
			// Segment-level failures degrade to silence of the exact
			// duration so the track's structure survives.
			logger.Warn("segment processing failed, substituting silence",
				logging.Int(logging.FieldSegment, i), logging.Error(err))
			if serr := p.media.Silence(ctx, seg.Duration(), segPath); serr != nil {
				return Result{}, services.Wrap(services.ErrExternalTool, "segment", "run", "generate fallback silence", serr)
			}
		} else {
			translatedParts = append(translatedParts, translated)
			cues = append(cues, segCues...)
		}
		processed = append(processed, ProcessedSegment{Index: i, FilePath: segPath})
	}

	p.report(req, Progress{Stage: "synthesized", Language: lang, Percent: 70,
		Message: "segment synthesis complete"})

	voiceTrack := filepath.Join(langDir, "voice_track.wav")
	if err := Reconstruct(ctx, p.media, processed, voiceTrack); err != nil {
		return Result{}, err
	}

	mixedTrack := p.mixTracks(logger, langDir, voiceTrack, prepared.backgroundWav)

	p.report(req, Progress{Stage: "mixed", Language: lang, Percent: 85,
		Message: "mixing complete"})

	result, err := p.export(ctx, logger, prepared, lang, outputDir, mixedTrack, translatedParts, cues)
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

// processSpeechSegment translates and synthesizes one speech segment,
// writing duration-matched audio to segPath. It returns the translated
// text and the caption cues derived from the chunk groupings.
func (p *Pipeline) processSpeechSegment(ctx context.Context, langDir string, index int, seg timeline.Segment, lang, sourceLang, segPath string) (string, []export.Cue, error) {
	chunks := textchunk.Split(seg.Text, p.cfg.Pipeline.MaxChunkLength)
	if len(chunks) == 0 {
		return "", nil, services.Wrap(services.ErrValidation, "segment", "process", "speech segment has no text", nil)
	}

	translated := make([]string, 0, len(chunks))
	chunkFiles := make([]string, 0, len(chunks))
	for j, chunk := range chunks {
		text, err := p.translator.Translate(ctx, chunk, lang, sourceLang)
		if err != nil {
			return "", nil, err
		}
		translated = append(translated, text)

		audio, err := p.synthesizer.GenerateSpeech(ctx, text, lang, seg.VoiceID)
		if err != nil {
			return "", nil, err
		}
		rawPath := filepath.Join(langDir, fmt.Sprintf("segment_%04d_chunk_%02d.audio", index, j))
		if err := os.WriteFile(rawPath, audio, 0o644); err != nil {
			return "", nil, fmt.Errorf("write synthesized chunk: %w", err)
		}
		wavPath := filepath.Join(langDir, fmt.Sprintf("segment_%04d_chunk_%02d.wav", index, j))
		if err := p.media.Normalize(ctx, rawPath, wavPath); err != nil {
			return "", nil, err
		}
		chunkFiles = append(chunkFiles, wavPath)
	}

	synthesized := chunkFiles[0]
	if len(chunkFiles) > 1 {
		synthesized = filepath.Join(langDir, fmt.Sprintf("segment_%04d_joined.wav", index))
		if err := p.media.Concat(ctx, chunkFiles, synthesized); err != nil {
			return "", nil, err
		}
	}

	if err := p.matcher.Match(ctx, synthesized, seg.Duration(), segPath); err != nil {
		return "", nil, err
	}

	joined := textchunk.JoinTranslated(translated)
	return joined, export.CuesForSegment(seg, translated), nil
}

// mixTracks combines the voice track with the optional background.
// Mixing failure degrades to the unmixed voice track, since voice-only
// output is still useful.
func (p *Pipeline) mixTracks(logger loggerish, langDir, voiceTrack, backgroundWav string) string {
	mixed := filepath.Join(langDir, "mixed.wav")
	err := mixer.Mix(voiceTrack, backgroundWav, mixed, mixer.Options{
		VoiceGain:      p.cfg.Mix.VoiceGain,
		BackgroundGain: p.cfg.Mix.BackgroundGain,
		Ducking:        p.cfg.Mix.DuckingEnabled,
		DuckThreshold:  p.cfg.Mix.DuckingThreshold,
		DuckReduction:  p.cfg.Mix.DuckingReduction,
	})
	if err != nil {
		logger.Warn("mixing failed, falling back to voice-only track", logging.Error(err))
		return voiceTrack
	}
	return mixed
}

// loggerish is the subset of slog.Logger the mixing fallback needs.
type loggerish interface {
	Warn(msg string, args ...any)
}

func (p *Pipeline) export(ctx context.Context, logger loggerish, prepared *preparedRun, lang, outputDir, mixedTrack string, translatedParts []string, cues []export.Cue) (Result, error) {
	container := p.cfg.Export.Container
	fileName := fmt.Sprintf("%s_%s.%s", prepared.sourceBase, lang, container)
	staged := filepath.Join(filepath.Dir(mixedTrack), fileName)
	if err := p.media.EncodeFinal(ctx, mixedTrack, staged, container, p.cfg.Export.Bitrate); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "export", "run", "encode final audio", err)
	}

	// Encoded output lands in the workspace first; the copy into the
	// output directory is integrity checked.
	finalPath := filepath.Join(outputDir, fileName)
	if err := fileutil.CopyFileVerified(staged, finalPath); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "export", "run", "publish final audio", err)
	}

	result := Result{
		LanguageCode:    lang,
		FinalAudioPath:  finalPath,
		TranscriptText:  prepared.transcript,
		TranslatedText:  textchunk.JoinTranslated(translatedParts),
		DurationSeconds: prepared.totalDuration,
	}

	if sum, err := media.Checksum(finalPath); err == nil {
		result.Checksum = sum
	} else {
		logger.Warn("checksum failed", logging.Error(err))
	}

	if p.cfg.Export.WriteCaptions && len(cues) > 0 {
		captionsPath := filepath.Join(outputDir, fmt.Sprintf("%s_%s.srt", prepared.sourceBase, lang))
		if err := export.WriteSRT(captionsPath, cues); err != nil {
			logger.Warn("caption export failed", logging.Error(err))
		} else {
			result.CaptionsPath = captionsPath
		}
	}

	if p.cfg.Export.WriteBundle {
		bundlePath := filepath.Join(outputDir, fmt.Sprintf("%s_%s.zip", prepared.sourceBase, lang))
		files := map[string]string{filepath.Base(finalPath): finalPath}
		if result.CaptionsPath != "" {
			files[filepath.Base(result.CaptionsPath)] = result.CaptionsPath
		}
		if err := export.Bundle(bundlePath, files); err != nil {
			logger.Warn("bundle export failed", logging.Error(err))
		} else {
			result.BundlePath = bundlePath
		}
	}
	return result, nil
}
