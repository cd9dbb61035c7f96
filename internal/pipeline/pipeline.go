// Package pipeline orchestrates a dubbing run: transcription, timeline
// segmentation, voice assignment, per-segment translation and
// synthesis, duration matching, reconstruction, mixing, and export.
//
// Per-language processing is strictly sequential over segments; target
// languages fan out over a small bounded worker pool. Each run owns a
// temporary workspace removed on every exit path.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"dubber/internal/config"
	"dubber/internal/language"
	"dubber/internal/logging"
	"dubber/internal/media"
	"dubber/internal/providers"
	"dubber/internal/services"
	"dubber/internal/textutil"
	"dubber/internal/timeline"
	"dubber/internal/voices"
)

// Progress is one coarse milestone update surfaced to the caller.
type Progress struct {
	Stage    string
	Language string
	Percent  int
	Message  string
}

// ProgressFunc receives milestone updates. It may be called from
// concurrent language workers and must be safe for concurrent use.
type ProgressFunc func(Progress)

// Request describes one dubbing run.
type Request struct {
	VoicePath       string
	BackgroundPath  string
	SourceLanguage  string
	TargetLanguages []string
	OutputDir       string
	Progress        ProgressFunc
}

// Result is the externally visible output for one target language.
type Result struct {
	LanguageCode    string
	FinalAudioPath  string
	CaptionsPath    string
	BundlePath      string
	Checksum        string
	TranscriptText  string
	TranslatedText  string
	DurationSeconds float64
}

// Pipeline wires the collaborators of a dubbing run. Construct with New;
// all dependencies are injected, no process-wide state.
type Pipeline struct {
	cfg         *config.Config
	media       *media.Runner
	transcriber providers.Transcriber
	translator  providers.Translator
	synthesizer providers.Synthesizer
	catalog     *voices.Catalog
	matcher     *DurationMatcher
	logger      *slog.Logger
}

// New builds a Pipeline from configuration and collaborators.
func New(
	cfg *config.Config,
	runner *media.Runner,
	transcriber providers.Transcriber,
	translator providers.Translator,
	synthesizer providers.Synthesizer,
	catalog *voices.Catalog,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:         cfg,
		media:       runner,
		transcriber: transcriber,
		translator:  translator,
		synthesizer: synthesizer,
		catalog:     catalog,
		matcher: NewDurationMatcher(runner,
			cfg.Pipeline.DurationTolerance,
			cfg.Pipeline.MaxStretchFactor,
			logger,
		),
		logger: logger,
	}
}

// Run executes the pipeline for every requested target language and
// returns the per-language results. Targets matching the source language
// are skipped. Languages are independent: a fatal error in one does not
// stop the others, and the returned error joins the failures of languages
// that produced no result.
func (p *Pipeline) Run(ctx context.Context, req Request) (map[string]Result, error) {
	if req.VoicePath == "" {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "run", "voice track path required", nil)
	}
	if len(req.TargetLanguages) == 0 {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "run", "at least one target language required", nil)
	}
	targets := make([]string, 0, len(req.TargetLanguages))
	for _, target := range req.TargetLanguages {
		lang := language.Normalize(target)
		if language.Equal(lang, req.SourceLanguage) {
			p.logger.Warn("skipping target language matching the source",
				logging.String(logging.FieldLanguage, lang))
			continue
		}
		targets = append(targets, lang)
	}
	if len(targets) == 0 {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "run", "all target languages match the source", nil)
	}
	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = p.cfg.Paths.OutputDir
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "run", "create output directory", err)
	}

	workspace := filepath.Join(p.cfg.Paths.WorkDir, "run-"+uuid.NewString())
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "run", "create workspace", err)
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			p.logger.Warn("workspace cleanup failed", logging.String("path", workspace), logging.Error(err))
		}
	}()

	p.report(req, Progress{Stage: "probe", Percent: 2, Message: "inspecting source media"})

	prepared, err := p.prepare(ctx, req, workspace)
	if err != nil {
		return nil, err
	}

	p.report(req, Progress{Stage: "transcribed", Percent: 20, Message: "transcription complete"})

	results := make(map[string]Result, len(targets))
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs []error
	)
	workers := p.cfg.Pipeline.LanguageWorkers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	for _, lang := range targets {
		lang := lang
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			langCtx := services.WithLanguage(ctx, lang)
			result, err := p.runLanguage(langCtx, req, prepared, lang, outputDir)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.logger.Error("language run failed",
					logging.String(logging.FieldLanguage, lang),
					logging.Error(err),
				)
				errs = append(errs, fmt.Errorf("language %s: %w", lang, err))
				return
			}
			results[lang] = result
		}()
	}
	wg.Wait()

	p.report(req, Progress{Stage: "done", Percent: 100, Message: "dubbing complete"})
	return results, errors.Join(errs...)
}

// preparedRun is the language-independent work shared by every target
// language of one run.
type preparedRun struct {
	workspace     string
	voiceWav      string
	backgroundWav string
	totalDuration float64
	transcript    string
	segments      []timeline.Segment
	profiles      []voices.SpeakerProfile
	speakers      []int
	sourceBase    string
}

func (p *Pipeline) prepare(ctx context.Context, req Request, workspace string) (*preparedRun, error) {
	info, err := p.media.Probe(ctx, req.VoicePath)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "probe", "run", "probe voice track", err)
	}

	voiceWav := filepath.Join(workspace, "voice.wav")
	if err := p.media.ExtractAudioTrack(ctx, req.VoicePath, voiceWav); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "extract", "run", "extract voice audio", err)
	}

	backgroundWav := ""
	if req.BackgroundPath != "" {
		backgroundWav = filepath.Join(workspace, "background.wav")
		if err := p.media.ExtractAudioTrack(ctx, req.BackgroundPath, backgroundWav); err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "extract", "run", "extract background audio", err)
		}
	}

	p.report(req, Progress{Stage: "transcribe", Percent: 8, Message: "transcribing source audio"})

	transcription, err := p.transcriber.Transcribe(ctx, voiceWav, req.SourceLanguage, true)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "run", "transcribe voice track", err)
	}

	total := info.DurationSeconds
	if total <= 0 {
		total = transcription.DurationSeconds
	}
	if total <= 0 {
		return nil, services.Wrap(services.ErrValidation, "transcribe", "run", "could not determine source duration", nil)
	}

	segments, err := timeline.Build(transcription.Utterances, total, timeline.Options{
		SilenceGap: p.cfg.Pipeline.SilenceGapSeconds,
		MinSegment: p.cfg.Pipeline.MinSegmentSeconds,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "segment", "run", "build timeline", err)
	}

	profiles := p.estimateSpeakerProfiles(ctx, workspace, voiceWav, transcription.Utterances)

	base := textutil.SanitizeToken(strings.TrimSuffix(filepath.Base(req.VoicePath), filepath.Ext(req.VoicePath)))
	return &preparedRun{
		workspace:     workspace,
		voiceWav:      voiceWav,
		backgroundWav: backgroundWav,
		totalDuration: total,
		transcript:    transcription.Transcript,
		segments:      segments,
		profiles:      profiles,
		speakers:      voices.Speakers(transcription.Utterances),
		sourceBase:    base,
	}, nil
}

// estimateSpeakerProfiles extracts the longest qualifying utterance per
// speaker and estimates its average pitch. Estimation failures leave
// the speaker unprofiled; voice assignment falls back to the default
// voice for them.
func (p *Pipeline) estimateSpeakerProfiles(ctx context.Context, workspace, voiceWav string, utterances []timeline.Utterance) []voices.SpeakerProfile {
	samples := voices.SampleUtterances(utterances, p.cfg.Pipeline.MinSpeakerSampleSecs)

	profiles := make([]voices.SpeakerProfile, 0, len(samples))
	for _, speakerID := range voices.Speakers(utterances) {
		utt, ok := samples[speakerID]
		if !ok {
			continue
		}
		samplePath := filepath.Join(workspace, fmt.Sprintf("speaker_%d_sample.wav", speakerID))
		if err := p.media.ExtractRange(ctx, voiceWav, utt.Start, utt.Duration(), samplePath); err != nil {
			p.logger.Warn("speaker sample extraction failed",
				logging.Int("speaker", speakerID), logging.Error(err))
			continue
		}
		pitch, err := voices.EstimatePitch(samplePath)
		if err != nil || pitch <= 0 {
			p.logger.Warn("pitch estimation failed",
				logging.Int("speaker", speakerID), logging.Error(err))
			continue
		}
		profiles = append(profiles, voices.SpeakerProfile{SpeakerID: speakerID, PitchHz: pitch})
	}
	return profiles
}

func (p *Pipeline) report(req Request, update Progress) {
	if req.Progress != nil {
		req.Progress(update)
	}
}
