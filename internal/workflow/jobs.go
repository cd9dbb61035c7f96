package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dubber/internal/logging"
	"dubber/internal/pipeline"
	"dubber/internal/queue"
)

// LanguageResult is the per-language payload persisted as queue results.
type LanguageResult struct {
	FinalAudio      string  `json:"final_audio"`
	Captions        string  `json:"captions,omitempty"`
	Bundle          string  `json:"bundle,omitempty"`
	Checksum        string  `json:"checksum,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// EncodeResults serializes pipeline results for queue storage.
func EncodeResults(results map[string]pipeline.Result) (string, error) {
	out := make(map[string]LanguageResult, len(results))
	for lang, res := range results {
		out[lang] = LanguageResult{
			FinalAudio:      res.FinalAudioPath,
			Captions:        res.CaptionsPath,
			Bundle:          res.BundlePath,
			Checksum:        res.Checksum,
			DurationSeconds: res.DurationSeconds,
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode job results: %w", err)
	}
	return string(data), nil
}

// DecodeResults parses a stored results payload, keyed by language code.
func DecodeResults(raw string) (map[string]LanguageResult, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out map[string]LanguageResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode job results: %w", err)
	}
	return out, nil
}

func (m *Manager) processJob(ctx context.Context, job *queue.Job) {
	logger := m.logger.With(logging.Int64("job_id", job.ID))
	source := filepath.Base(job.VoicePath)
	started := time.Now()

	logger.Info("job started",
		logging.String("voice_path", job.VoicePath),
		logging.String("languages", strings.Join(job.TargetLanguages, ",")),
	)
	if err := m.notifier.NotifyJobStarted(ctx, job.ID, source, job.TargetLanguages); err != nil {
		logger.Warn("job start notification failed", logging.Error(err))
	}

	req := pipeline.Request{
		VoicePath:       job.VoicePath,
		BackgroundPath:  job.BackgroundPath,
		SourceLanguage:  job.SourceLanguage,
		TargetLanguages: job.TargetLanguages,
		OutputDir:       m.cfg.Paths.OutputDir,
		Progress: func(update pipeline.Progress) {
			m.persistProgress(ctx, logger, job.ID, update)
		},
	}

	results, runErr := m.runner.Run(ctx, req)

	persistCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()

	if errors.Is(runErr, context.Canceled) && len(results) == 0 {
		if err := m.store.MarkFailed(persistCtx, job.ID, queue.DaemonStopReason); err != nil {
			logger.Warn("failed to persist interrupted job", logging.Error(err))
		}
		return
	}

	if len(results) == 0 {
		reason := "dubbing failed"
		if runErr != nil {
			reason = runErr.Error()
		}
		logger.Error("job failed", logging.Error(runErr))
		if err := m.store.MarkFailed(persistCtx, job.ID, reason); err != nil {
			logger.Warn("failed to persist job failure", logging.Error(err))
		}
		if err := m.notifier.NotifyJobFailed(ctx, job.ID, source, reason); err != nil {
			logger.Warn("job failure notification failed", logging.Error(err))
		}
		return
	}

	if runErr != nil {
		logger.Warn("job completed with language failures", logging.Error(runErr))
	}
	for _, lang := range sortedLanguages(results) {
		if err := m.notifier.NotifyLanguageCompleted(ctx, job.ID, lang, filepath.Base(results[lang].FinalAudioPath)); err != nil {
			logger.Warn("language notification failed", logging.Error(err))
		}
	}

	encoded, err := EncodeResults(results)
	if err != nil {
		logger.Warn("failed to encode job results", logging.Error(err))
		encoded = "{}"
	}
	if err := m.store.MarkCompleted(persistCtx, job.ID, encoded); err != nil {
		logger.Warn("failed to persist job completion", logging.Error(err))
	}
	if err := m.notifier.NotifyJobCompleted(ctx, job.ID, source, len(results), time.Since(started)); err != nil {
		logger.Warn("job completion notification failed", logging.Error(err))
	}
	logger.Info("job completed",
		logging.Int("languages", len(results)),
		logging.Duration("elapsed", time.Since(started)),
	)
}

func (m *Manager) persistProgress(ctx context.Context, logger logWarner, jobID int64, update pipeline.Progress) {
	if ctx.Err() != nil {
		return
	}
	stage := update.Stage
	if update.Language != "" {
		stage = stage + ":" + update.Language
	}
	if err := m.store.UpdateProgress(ctx, jobID, stage, float64(update.Percent), update.Message); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
	}
}

func sortedLanguages(results map[string]pipeline.Result) []string {
	langs := make([]string, 0, len(results))
	for lang := range results {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

type logWarner interface {
	Warn(msg string, args ...any)
}
